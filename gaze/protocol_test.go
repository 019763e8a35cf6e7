package gaze_test

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cursork/glimpsh/gaze"
	"github.com/smartystreets/goconvey/convey"
)

var receivedAt = time.Unix(1_700_000_123, 500_000_000)

func floats(vs ...float32) []byte {
	b := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func TestDecodeBinary(t *testing.T) {
	convey.Convey("Given binary payloads", t, func() {
		convey.Convey("16 bytes carry x, y, timestamp and confidence", func() {
			msg, err := gaze.Decode(floats(100.5, 200.25, 12.0, 0.9), true, receivedAt)
			convey.So(err, convey.ShouldBeNil)
			convey.So(msg.Kind, convey.ShouldEqual, gaze.KindSample)
			convey.So(msg.Sample.X, convey.ShouldEqual, 100.5)
			convey.So(msg.Sample.Y, convey.ShouldEqual, 200.25)
			convey.So(msg.Sample.Timestamp, convey.ShouldEqual, 12.0)
			convey.So(msg.Sample.Confidence, convey.ShouldAlmostEqual, 0.9, 1e-6)
			convey.So(msg.Sample.Cell, convey.ShouldBeNil)
		})

		convey.Convey("12 bytes default the confidence", func() {
			msg, err := gaze.Decode(floats(0.25, 0.75, 99), true, receivedAt)
			convey.So(err, convey.ShouldBeNil)
			convey.So(msg.Sample.Timestamp, convey.ShouldEqual, 99)
			convey.So(msg.Sample.Confidence, convey.ShouldEqual, 1.0)
		})

		convey.Convey("8 bytes are stamped with the receipt time", func() {
			msg, err := gaze.Decode(floats(0.25, 0.75), true, receivedAt)
			convey.So(err, convey.ShouldBeNil)
			convey.So(msg.Sample.X, convey.ShouldEqual, 0.25)
			convey.So(msg.Sample.Timestamp, convey.ShouldAlmostEqual, 1_700_000_123.5, 1e-3)
			convey.So(msg.Sample.Confidence, convey.ShouldEqual, 1.0)
		})

		convey.Convey("Other lengths are decode errors", func() {
			for _, n := range []int{0, 4, 10, 20} {
				_, err := gaze.Decode(make([]byte, n), true, receivedAt)
				var de *gaze.DecodeError
				convey.So(errors.As(err, &de), convey.ShouldBeTrue)
			}
		})

		convey.Convey("EncodeBinary round-trips through the decoder", func() {
			in := gaze.Sample{X: 100.5, Y: 200.25, Timestamp: 12.0, Confidence: 0.9}
			out, err := gaze.DecodeBinary(gaze.EncodeBinary(in), receivedAt)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out.X, convey.ShouldEqual, in.X)
			convey.So(out.Y, convey.ShouldEqual, in.Y)
			convey.So(out.Timestamp, convey.ShouldEqual, in.Timestamp)
			convey.So(out.Confidence, convey.ShouldAlmostEqual, in.Confidence, 1e-6)
		})
	})
}

func TestDecodeText(t *testing.T) {
	decode := func(s string) (gaze.Message, error) {
		return gaze.Decode([]byte(s), false, receivedAt)
	}

	convey.Convey("Given JSON payloads", t, func() {
		convey.Convey("Pixel keys win over normalized keys", func() {
			msg, err := decode(`{"x_px": 1024, "y_px": 512, "x": 0.1, "y": 0.2, "seq": 7}`)
			convey.So(err, convey.ShouldBeNil)
			convey.So(msg.Kind, convey.ShouldEqual, gaze.KindSample)
			convey.So(msg.Sample.X, convey.ShouldEqual, 1024)
			convey.So(msg.Sample.Y, convey.ShouldEqual, 512)
			convey.So(msg.Sample.Seq, convey.ShouldEqual, 7)
		})

		convey.Convey("Normalized samples carry optional fields", func() {
			msg, err := decode(`{"x": 0.4, "y": 0.6, "timestamp": 42.5, "confidence": 0.7, "cell": {"row": 1, "col": 0}}`)
			convey.So(err, convey.ShouldBeNil)
			convey.So(msg.Sample.X, convey.ShouldEqual, 0.4)
			convey.So(msg.Sample.Timestamp, convey.ShouldEqual, 42.5)
			convey.So(msg.Sample.Confidence, convey.ShouldEqual, 0.7)
			convey.So(msg.Sample.Cell, convey.ShouldResemble, &gaze.Cell{Row: 1, Col: 0})
		})

		convey.Convey("A missing timestamp defaults to the receipt time", func() {
			msg, err := decode(`{"x": 0.4, "y": 0.6}`)
			convey.So(err, convey.ShouldBeNil)
			convey.So(msg.Sample.Timestamp, convey.ShouldAlmostEqual, 1_700_000_123.5, 1e-3)
			convey.So(msg.Sample.Confidence, convey.ShouldEqual, 1.0)
		})

		convey.Convey("Hello yields the server identity with defaults", func() {
			msg, err := decode(`{"type": "hello", "name": "EyeTrax", "version": "0.3"}`)
			convey.So(err, convey.ShouldBeNil)
			convey.So(msg.Kind, convey.ShouldEqual, gaze.KindHello)
			convey.So(msg.Identity, convey.ShouldResemble, gaze.ServerIdentity{Name: "EyeTrax", Version: "0.3"})

			msg, err = decode(`{"type": "hello"}`)
			convey.So(err, convey.ShouldBeNil)
			convey.So(msg.Identity, convey.ShouldResemble, gaze.ServerIdentity{Name: "Unknown", Version: "1.0"})
		})

		convey.Convey("Error messages become remote errors", func() {
			_, err := decode(`{"error": "camera unavailable", "x": 1, "y": 2}`)
			var re *gaze.RemoteError
			convey.So(errors.As(err, &re), convey.ShouldBeTrue)
			convey.So(re.Message, convey.ShouldEqual, "camera unavailable")
		})

		convey.Convey("Status only applies without coordinates", func() {
			msg, err := decode(`{"status": "calibrating"}`)
			convey.So(err, convey.ShouldBeNil)
			convey.So(msg.Kind, convey.ShouldEqual, gaze.KindStatus)
			convey.So(msg.Status, convey.ShouldEqual, "calibrating")

			msg, err = decode(`{"status": "ok", "x": 0.5, "y": 0.5}`)
			convey.So(err, convey.ShouldBeNil)
			convey.So(msg.Kind, convey.ShouldEqual, gaze.KindSample)
		})

		convey.Convey("Malformed payloads are decode errors", func() {
			for _, s := range []string{
				`not json`,
				`[1, 2]`,
				`null`,
				`{"foo": "bar"}`,
				`{"x": "left", "y": 0.5}`,
				`{"x": 0.5}`,
				`{"x": 0.5, "y": 0.5, "timestamp": "noon"}`,
			} {
				_, err := decode(s)
				convey.So(gaze.IsDecodeError(err), convey.ShouldBeTrue)
			}
		})
	})
}

func TestToScreen(t *testing.T) {
	convey.Convey("ToScreen distinguishes pixels from fractions by magnitude", t, func() {
		x, y := gaze.ToScreen(gaze.Sample{X: 0.5, Y: 0.25}, 1920, 1080)
		convey.So(x, convey.ShouldEqual, 960)
		convey.So(y, convey.ShouldEqual, 270)

		x, y = gaze.ToScreen(gaze.Sample{X: 1024, Y: 0.5}, 1920, 1080)
		convey.So(x, convey.ShouldEqual, 1024)
		convey.So(y, convey.ShouldEqual, 0.5)

		x, y = gaze.ToScreen(gaze.Sample{X: 1, Y: 1}, 800, 600)
		convey.So(x, convey.ShouldEqual, 800)
		convey.So(y, convey.ShouldEqual, 600)
	})
}
