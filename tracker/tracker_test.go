package tracker

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	Convey("one collection carries at most one active run", t, func() {
		m := NewManager()
		act, ok := m.Acquire("products", "r1")
		So(ok, ShouldBeTrue)
		So(act.RunID, ShouldEqual, "r1")

		_, ok = m.Acquire("products", "r2")
		So(ok, ShouldBeFalse)

		Convey("other collections are independent", func() {
			_, ok := m.Acquire("banners", "r3")
			So(ok, ShouldBeTrue)
			So(m.Collections(), ShouldHaveLength, 2)
		})

		Convey("release frees the slot and cancels the run context", func() {
			So(m.Release("products", "r1"), ShouldBeTrue)
			cancelled := false
			select {
			case <-act.Ctx.Done():
				cancelled = true
			default:
			}
			So(cancelled, ShouldBeTrue)
			_, ok := m.Acquire("products", "r2")
			So(ok, ShouldBeTrue)
		})

		Convey("release is keyed by run id and double release is safe", func() {
			So(m.Release("products", "r9"), ShouldBeFalse) // 后继运行不可误释放
			So(m.Release("products", "r1"), ShouldBeTrue)
			So(m.Release("products", "r1"), ShouldBeFalse)
		})

		Convey("get reports the current active run", func() {
			got, ok := m.Get("products")
			So(ok, ShouldBeTrue)
			So(got.RunID, ShouldEqual, "r1")
			_, ok = m.Get("banners")
			So(ok, ShouldBeFalse)
		})
	})
}
