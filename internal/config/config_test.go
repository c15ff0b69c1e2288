package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/rai/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDefaults(t *testing.T) {
	Convey("Given no file and no environment", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then defaults apply", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9080")
			So(cfg.Interval, ShouldEqual, 0.1)
			So(cfg.SmoothingSigma, ShouldEqual, 1.0)
			So(cfg.ReactionMinRun, ShouldEqual, 2)
			So(cfg.BreakWindow, ShouldEqual, 3)
			So(cfg.MinBreakAngle, ShouldEqual, 20.0)
			So(cfg.MaxLeaderboardLimit, ShouldEqual, 100)
		})
	})
}

func TestEnvOverrides(t *testing.T) {
	Convey("Given RAI_ environment overrides", t, func() {
		t.Setenv("RAI_ADDR", ":7070")
		t.Setenv("RAI_QUEUE_SIZE", "512")
		t.Setenv("RAI_SMOOTHING_SIGMA", "0.5")
		t.Setenv("RAI_LOG_LEVEL", "debug")

		cfg, err := config.Load(context.Background())

		Convey("Then env values win over defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.PlayQueueSize, ShouldEqual, 512)
			So(cfg.SmoothingSigma, ShouldEqual, 0.5)
			So(cfg.LogLevel, ShouldEqual, "debug")
		})
	})
}

func TestFileLayer(t *testing.T) {
	Convey("Given a YAML config file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "rai.yaml")
		yaml := `
addr: ":6060"
worker_count: 3
jerk_thresholds:
  agency-driven: 6.5
norms:
  reaction_delay:
    mean: 5.0
    std_dev: 2.5
`
		So(os.WriteFile(path, []byte(yaml), 0o600), ShouldBeNil)
		t.Setenv("RAI_CONFIG", path)

		Convey("When loaded without env overrides", func() {
			cfg, err := config.Load(context.Background())

			Convey("Then file values layer over defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":6060")
				So(cfg.WorkerCount, ShouldEqual, 3)
				So(cfg.JerkThresholds["agency-driven"], ShouldEqual, 6.5)
				So(cfg.Norms["reaction_delay"].Mean, ShouldEqual, 5.0)
				So(cfg.Norms["reaction_delay"].StdDev, ShouldEqual, 2.5)
			})
		})

		Convey("When env contradicts the file", func() {
			t.Setenv("RAI_ADDR", ":5050")
			cfg, err := config.Load(context.Background())

			Convey("Then env wins", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":5050")
			})
		})
	})

	Convey("Given a missing config file", t, func() {
		t.Setenv("RAI_CONFIG", "/does/not/exist.yaml")
		_, err := config.Load(context.Background())

		Convey("Then loading fails with the load sentinel", func() {
			So(err, ShouldNotBeNil)
			So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
		})
	})
}

func TestValidation(t *testing.T) {
	Convey("Given invalid settings", t, func() {
		cases := map[string]string{
			"RAI_INTERVAL":         "0",
			"RAI_SMOOTHING_SIGMA":  "-1",
			"RAI_REACTION_MIN_RUN": "0",
			"RAI_BREAK_WINDOW":     "0",
			"RAI_MIN_BREAK_ANGLE":  "0",
		}
		for key, val := range cases {
			Convey("When "+key+" is "+val, func() {
				t.Setenv(key, val)
				_, err := config.Load(context.Background())
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		}
	})
}
