package config

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "conf.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad(t *testing.T) {
	Convey("a full config file loads and validates", t, func() {
		p := writeTemp(t, `
remote:
  base_url: http://gen.example.com
  timeout_seconds: 8
poll:
  interval_ms: 1500
snapshot:
  debounce_ms: 500
required_fields: [image_url, sku]
mysql:
  data_source: user:pass@tcp(127.0.0.1:3306)/batch?charset=utf8mb4&parseTime=true&loc=Local
`)
		c, err := Load(p)
		So(err, ShouldBeNil)
		So(c.Remote.BaseURL, ShouldEqual, "http://gen.example.com")
		So(c.Remote.TimeoutSeconds, ShouldEqual, 8)
		So(c.Poll.IntervalMS, ShouldEqual, 1500)
		So(c.Snapshot.DebounceMS, ShouldEqual, 500)
		So(c.RequiredFields, ShouldResemble, []string{"image_url", "sku"})
		So(c.Mysql.DataSource, ShouldNotBeEmpty)
	})

	Convey("a missing or invalid base url fails validation", t, func() {
		_, err := Load(writeTemp(t, "poll:\n  interval_ms: 100\n"))
		So(err, ShouldNotBeNil)

		_, err = Load(writeTemp(t, "remote:\n  base_url: not-a-url\n"))
		So(err, ShouldNotBeNil)
	})

	Convey("unreadable files and broken yaml surface as errors", t, func() {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		So(err, ShouldNotBeNil)

		_, err = Load(writeTemp(t, "remote: ["))
		So(err, ShouldNotBeNil)
	})

	Convey("must load panics on failure", t, func() {
		So(func() { MustLoad(filepath.Join(t.TempDir(), "absent.yaml")) }, ShouldPanic)
	})
}
