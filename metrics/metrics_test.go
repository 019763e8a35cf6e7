package metrics_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cursork/glimpsh/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smartystreets/goconvey/convey"
)

func TestManager(t *testing.T) {
	convey.Convey("Given a metrics manager", t, func() {
		m := metrics.NewManager()

		convey.Convey("Gaze counters are exported", func() {
			m.SampleReceived()
			m.SampleReceived()
			m.DecodeError()
			m.Connected()

			n, err := testutil.GatherAndCount(m.Registry(), "glimpsh_gaze_samples_received_total")
			convey.So(err, convey.ShouldBeNil)
			convey.So(n, convey.ShouldEqual, 1)

			expected := `
# HELP glimpsh_gaze_samples_received_total Gaze samples decoded from the gaze source
# TYPE glimpsh_gaze_samples_received_total counter
glimpsh_gaze_samples_received_total 2
`
			err = testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "glimpsh_gaze_samples_received_total")
			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("The handler serves the exposition format", func() {
			m.FocusChanged("dwell")
			m.DwellCommitted(250 * time.Millisecond)

			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
			body := rec.Body.String()
			convey.So(body, convey.ShouldContainSubstring, `glimpsh_focus_changes_total{source="dwell"} 1`)
			convey.So(body, convey.ShouldContainSubstring, "glimpsh_focus_dwell_seconds_count 1")
		})
	})

	convey.Convey("A nil manager records nothing and does not panic", t, func() {
		var m *metrics.Manager
		convey.So(func() {
			m.SampleReceived()
			m.DecodeError()
			m.RemoteError()
			m.Connected()
			m.Disconnected()
			m.FocusChanged("manual")
			m.DwellCommitted(time.Second)
		}, convey.ShouldNotPanic)
		convey.So(m.Registry(), convey.ShouldBeNil)
	})
}
