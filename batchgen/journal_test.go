package batchgen

import (
	"context"
	"strconv"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mengeric/batchgen-go/logging"
)

func TestJournalCapture(t *testing.T) {
	Convey("logs carrying the run context land in that run's journal, capped", t, func() {
		c := New(WithJournalLimit(5))
		// 空集合启动直接短路完成，但运行保留在登记表里
		run, err := c.Start(context.Background(), "products", nil, nil)
		So(err, ShouldBeNil)

		ctx := WithRunID(context.Background(), run.ID)
		for i := 0; i < 10; i++ {
			logging.L().Info(ctx, "poll tick", "i", strconv.Itoa(i))
		}
		got, _ := c.RunInfo(run.ID)
		So(got.Journal, ShouldHaveLength, 5)
		So(got.Journal[4].Line, ShouldEqual, "poll tick | i=9")

		Convey("logs without a run context are ignored", func() {
			before := len(got.Journal)
			logging.L().Info(context.Background(), "stray line")
			again, _ := c.RunInfo(run.ID)
			So(again.Journal, ShouldHaveLength, before)
		})
	})
}

func TestFlatten(t *testing.T) {
	Convey("key-value args flatten into one line", t, func() {
		So(flatten("msg"), ShouldEqual, "msg")
		So(flatten("msg", "k", "v", "n", 3), ShouldEqual, "msg | k=v n=3")
		So(flatten("msg", 7, "v"), ShouldEqual, "msg | arg=v")
	})
}
