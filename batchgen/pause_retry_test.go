package batchgen

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/mock/gomock"

	"github.com/mengeric/batchgen-go/client"
	"github.com/mengeric/batchgen-go/mocks"
	"github.com/mengeric/batchgen-go/rowstore"
)

func TestController_PauseHaltsPolling(t *testing.T) {
	Convey("pausing freezes polling and resume completes the run", t, func() {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		api := mocks.NewMockRemoteAPI(ctrl)
		api.EXPECT().CreateJob(gomock.Any(), gomock.Any()).Return("J1", nil)

		var fetches atomic.Int32
		var release atomic.Bool
		api.EXPECT().FetchStatus(gomock.Any(), "J1").DoAndReturn(
			func(context.Context, string) (*client.RemoteJob, error) {
				fetches.Add(1)
				if release.Load() {
					return &client.RemoteJob{ID: "J1", Status: client.JobStatusCompleted, Items: []client.RemoteItem{
						{ID: "r1", Status: client.ItemStatusSuccess, Output: map[string]string{"result_url": "u"}},
					}}, nil
				}
				return &client.RemoteJob{ID: "J1", Status: client.JobStatusProcessing, Items: []client.RemoteItem{
					{ID: "r1", Status: client.ItemStatusProcessing},
				}}, nil
			}).AnyTimes()

		s := rowstore.NewMemory()
		seedRows(s, "r1")
		c := New(WithRemoteAPI(api), WithRowStore(s), WithPollInterval(10*time.Millisecond))
		run, err := c.Start(context.Background(), "products", nil, nil)
		So(err, ShouldBeNil)

		So(c.Pause(run.ID), ShouldBeNil)
		got, _ := c.RunInfo(run.ID)
		So(got.Phase, ShouldEqual, PhasePaused)

		// 在途周期允许收尾；此后拉取次数必须停在原地。
		time.Sleep(30 * time.Millisecond)
		before := fetches.Load()
		time.Sleep(80 * time.Millisecond)
		So(fetches.Load(), ShouldEqual, before)

		Convey("resume continues from where it stopped without re-submitting", func() {
			release.Store(true)
			So(c.Resume(run.ID), ShouldBeNil)
			So(waitPhase(c, run.ID, PhaseCompleted), ShouldBeTrue)
			rec, _ := s.Get(context.Background(), "r1")
			So(rec.Status, ShouldEqual, rowstore.StatusCompleted)
		})
	})
}

func TestController_RetryFailedSubset(t *testing.T) {
	Convey("retry re-submits exactly the failed rows as a brand-new remote job", t, func() {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		api := mocks.NewMockRemoteAPI(ctrl)
		s := rowstore.NewMemory()
		seedRows(s, "r1", "r2", "r3")

		first := &client.RemoteJob{ID: "J1", Status: client.JobStatusCompleted, Items: []client.RemoteItem{
			{ID: "r1", Status: client.ItemStatusSuccess, Output: map[string]string{"result_url": "a"}},
			{ID: "r2", Status: client.ItemStatusFailed, Error: "timeout"},
			{ID: "r3", Status: client.ItemStatusSuccess, Output: map[string]string{"result_url": "c"}},
		}}
		api.EXPECT().CreateJob(gomock.Any(), gomock.Any()).Return("J1", nil)
		api.EXPECT().FetchStatus(gomock.Any(), "J1").Return(first, nil).AnyTimes()

		c := New(WithRemoteAPI(api), WithRowStore(s), WithPollInterval(10*time.Millisecond))
		run1, err := c.Start(context.Background(), "products", nil, client.Settings{"style": "studio"})
		So(err, ShouldBeNil)
		So(waitPhase(c, run1.ID, PhaseCompleted), ShouldBeTrue)

		var retryReq client.CreateJobReq
		second := &client.RemoteJob{ID: "J2", Status: client.JobStatusCompleted, Items: []client.RemoteItem{
			{ID: "r2", Status: client.ItemStatusSuccess, Output: map[string]string{"result_url": "b"}},
		}}
		api.EXPECT().CreateJob(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req client.CreateJobReq) (string, error) {
				retryReq = req
				return "J2", nil
			})
		api.EXPECT().FetchStatus(gomock.Any(), "J2").Return(second, nil).AnyTimes()

		run2, err := c.RetryFailed(context.Background(), "products", nil)
		So(err, ShouldBeNil)
		So(run2.ID, ShouldNotEqual, run1.ID)
		So(run2.RemoteJobID, ShouldEqual, "J2")
		So(retryReq.Items, ShouldHaveLength, 1)
		So(retryReq.Items[0].ID, ShouldEqual, "r2")
		// settings 未传时复用上次运行拷入的参数
		So(retryReq.Settings["style"], ShouldEqual, "studio")

		So(waitPhase(c, run2.ID, PhaseCompleted), ShouldBeTrue)
		rec, _ := s.Get(context.Background(), "r2")
		So(rec.Status, ShouldEqual, rowstore.StatusCompleted)
		So(rec.Output["result_url"], ShouldEqual, "b")
		// 成功行不受重试影响
		r1, _ := s.Get(context.Background(), "r1")
		So(r1.Status, ShouldEqual, rowstore.StatusCompleted)

		Convey("retry with nothing failed is rejected", func() {
			_, err := c.RetryFailed(context.Background(), "products", nil)
			So(err, ShouldEqual, ErrNoFailedRows)
		})
	})
}

// waitRowStatus 轮询等待一行进入指定状态。
func waitRowStatus(s rowstore.Store, key string, status int) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rec, err := s.Get(context.Background(), key); err == nil && rec.Status == status {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestController_RetryWhileActive(t *testing.T) {
	Convey("a retry rejected by the active-run guard leaves failed rows untouched", t, func() {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		api := mocks.NewMockRemoteAPI(ctrl)
		api.EXPECT().CreateJob(gomock.Any(), gomock.Any()).Return("J1", nil)
		// r2 早早失败，r1 一直在途：运行保持活动
		api.EXPECT().FetchStatus(gomock.Any(), "J1").Return(&client.RemoteJob{
			ID: "J1", Status: client.JobStatusProcessing,
			Items: []client.RemoteItem{
				{ID: "r1", Status: client.ItemStatusProcessing},
				{ID: "r2", Status: client.ItemStatusFailed, Error: "boom"},
			},
		}, nil).AnyTimes()
		api.EXPECT().CancelJob(gomock.Any(), "J1").Return(nil).MaxTimes(1)
		s := rowstore.NewMemory()
		seedRows(s, "r1", "r2")

		c := New(WithRemoteAPI(api), WithRowStore(s), WithPollInterval(10*time.Millisecond))
		run, err := c.Start(context.Background(), "products", nil, nil)
		So(err, ShouldBeNil)
		So(waitRowStatus(s, "r2", rowstore.StatusFailed), ShouldBeTrue)

		_, err = c.RetryFailed(context.Background(), "products", nil)
		So(err, ShouldEqual, ErrRunActive)

		// 被拒绝的重试不得把失败行挪进 processing：那样它们将无主且不可再重试
		rec, _ := s.Get(context.Background(), "r2")
		So(rec.Status, ShouldEqual, rowstore.StatusFailed)
		So(rec.Error, ShouldEqual, "boom")

		So(c.Cancel(run.ID), ShouldBeNil)
		time.Sleep(20 * time.Millisecond)
	})
}

func TestController_RetryCreateFails(t *testing.T) {
	Convey("a retry whose create fails leaves rows failed and retriable", t, func() {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		api := mocks.NewMockRemoteAPI(ctrl)
		s := rowstore.NewMemory()
		seedRows(s, "r1")

		api.EXPECT().CreateJob(gomock.Any(), gomock.Any()).Return("J1", nil)
		api.EXPECT().FetchStatus(gomock.Any(), "J1").Return(&client.RemoteJob{
			ID: "J1", Status: client.JobStatusCompleted,
			Items: []client.RemoteItem{{ID: "r1", Status: client.ItemStatusFailed, Error: "boom"}},
		}, nil).AnyTimes()

		c := New(WithRemoteAPI(api), WithRowStore(s), WithPollInterval(10*time.Millisecond))
		run1, err := c.Start(context.Background(), "products", nil, nil)
		So(err, ShouldBeNil)
		So(waitPhase(c, run1.ID, PhaseCompleted), ShouldBeTrue)

		api.EXPECT().CreateJob(gomock.Any(), gomock.Any()).Return("", &client.CreateError{Reason: "POST /jobs => 500"})
		run2, err := c.RetryFailed(context.Background(), "products", nil)
		So(err, ShouldNotBeNil)
		So(run2.Phase, ShouldEqual, PhaseFailedToStart)

		// 提交前的状态原样保留：行仍是 failed，而不是无主的 processing
		rec, _ := s.Get(context.Background(), "r1")
		So(rec.Status, ShouldEqual, rowstore.StatusFailed)
		So(rec.Error, ShouldEqual, "boom")

		Convey("the same rows can be retried again afterwards", func() {
			api.EXPECT().CreateJob(gomock.Any(), gomock.Any()).Return("J2", nil)
			api.EXPECT().FetchStatus(gomock.Any(), "J2").Return(&client.RemoteJob{
				ID: "J2", Status: client.JobStatusCompleted,
				Items: []client.RemoteItem{{ID: "r1", Status: client.ItemStatusSuccess, Output: map[string]string{"result_url": "ok"}}},
			}, nil).AnyTimes()

			run3, err := c.RetryFailed(context.Background(), "products", nil)
			So(err, ShouldBeNil)
			So(waitPhase(c, run3.ID, PhaseCompleted), ShouldBeTrue)
			rec, _ := s.Get(context.Background(), "r1")
			So(rec.Status, ShouldEqual, rowstore.StatusCompleted)
		})
	})
}
