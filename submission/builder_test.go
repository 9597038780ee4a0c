package submission

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mengeric/batchgen-go/rowstore"
)

func TestBuilder_Validation(t *testing.T) {
	Convey("rows missing required input are rejected and marked failed locally", t, func() {
		ctx := context.Background()
		s := rowstore.NewMemory()
		_ = s.Put(ctx, &rowstore.Record{Key: "r1", Status: rowstore.StatusPending, Input: map[string]string{"image_url": "http://x/1.jpg"}})
		_ = s.Put(ctx, &rowstore.Record{Key: "r2", Status: rowstore.StatusPending, Input: map[string]string{"image_url": "  "}})
		_ = s.Put(ctx, &rowstore.Record{Key: "r3", Status: rowstore.StatusPending, Input: map[string]string{"title": "no url"}})
		rows, _ := s.List(ctx)

		b := NewBuilder(s)
		res, err := b.Build(ctx, rows, false)
		So(err, ShouldBeNil)

		// N=3，k=2：恰好 N-k 个条目、k 行失败
		So(res.Units, ShouldHaveLength, 1)
		So(res.Rejected, ShouldHaveLength, 2)
		So(res.Units[0].ID, ShouldEqual, "r1")
		for _, key := range []string{"r2", "r3"} {
			rec, err := s.Get(ctx, key)
			So(err, ShouldBeNil)
			So(rec.Status, ShouldEqual, rowstore.StatusFailed)
			So(rec.Error, ShouldEqual, ErrMissingInput)
		}
		ok, _ := s.Get(ctx, "r1")
		So(ok.Status, ShouldEqual, rowstore.StatusPending)
	})

	Convey("all rows invalid should yield an empty unit list, not an error", t, func() {
		ctx := context.Background()
		s := rowstore.NewMemory()
		_ = s.Put(ctx, &rowstore.Record{Key: "r1", Status: rowstore.StatusPending})
		_ = s.Put(ctx, &rowstore.Record{Key: "r2", Status: rowstore.StatusPending})
		rows, _ := s.List(ctx)

		res, err := NewBuilder(s).Build(ctx, rows, false)
		So(err, ShouldBeNil)
		So(res.Units, ShouldBeEmpty)
		So(res.Rejected, ShouldHaveLength, 2)
	})

	Convey("any one of the required fields is enough", t, func() {
		ctx := context.Background()
		s := rowstore.NewMemory()
		_ = s.Put(ctx, &rowstore.Record{Key: "r1", Status: rowstore.StatusPending, Input: map[string]string{"video_url": "http://x/v.mp4"}})
		rows, _ := s.List(ctx)

		res, err := NewBuilder(s, "image_url", "video_url").Build(ctx, rows, false)
		So(err, ShouldBeNil)
		So(res.Units, ShouldHaveLength, 1)
	})
}

func TestDeriveKey_Chain(t *testing.T) {
	Convey("row_index wins over sku, sku wins over ordinal", t, func() {
		both := rowstore.Record{Input: map[string]string{"row_index": "17", "sku": "SKU-9"}}
		So(DeriveKey(both, 3), ShouldEqual, "17")

		skuOnly := rowstore.Record{Input: map[string]string{"sku": "SKU-9"}}
		So(DeriveKey(skuOnly, 3), ShouldEqual, "SKU-9")

		neither := rowstore.Record{Input: map[string]string{"title": "t"}}
		So(DeriveKey(neither, 3), ShouldEqual, "pos-3")
	})

	Convey("builder derives unit id only when the row key is empty", t, func() {
		ctx := context.Background()
		s := rowstore.NewMemory()
		_ = s.Put(ctx, &rowstore.Record{Key: "fixed", Status: rowstore.StatusPending, Input: map[string]string{"image_url": "u", "sku": "SKU-1"}})
		rows, _ := s.List(ctx)

		res, err := NewBuilder(s).Build(ctx, rows, false)
		So(err, ShouldBeNil)
		So(res.Units[0].ID, ShouldEqual, "fixed")
	})
}

func TestNormalizer(t *testing.T) {
	Convey("registered normalizer should rewrite the field value", t, func() {
		Register("image_url", func(v string) string {
			if v != "" && v[0] == '/' {
				return "https://cdn.example.com" + v
			}
			return v
		})
		defer Register("image_url", nil)

		ctx := context.Background()
		s := rowstore.NewMemory()
		_ = s.Put(ctx, &rowstore.Record{Key: "r1", Status: rowstore.StatusPending, Input: map[string]string{"image_url": "/a.jpg"}})
		rows, _ := s.List(ctx)

		res, err := NewBuilder(s).Build(ctx, rows, false)
		So(err, ShouldBeNil)
		So(res.Units[0].Fields["image_url"], ShouldEqual, "https://cdn.example.com/a.jpg")
	})
}
