package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/gpcam/internal/config"
	"github.com/cjeanneret/gpcam/internal/debug"
	"github.com/cjeanneret/gpcam/internal/gphoto"
	"github.com/cjeanneret/gpcam/internal/gphoto/native"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := &app{}
	err := a.rootCmd().ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "gpcam:", err)
		os.Exit(1)
	}
}

// app carries state shared by every command.
type app struct {
	cfgPath    string
	debugLevel int
	model      string
	port       string

	cfg    *config.Config
	driver native.Driver
	out    io.Writer
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gpcam",
		Short: "Control gphoto2 cameras: config, capture, live view and tethering",
		Long: `gpcam drives cameras supported by libgphoto2: browse and change
settings, capture and download images, grab live-view frames, and run a
GPIO shutter button or HTTP tethering station.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgPath, "config", filepath.Join("configs", "default.yaml"), "path to config file")
	pf.IntVar(&a.debugLevel, "debug", -1, "debug level 0-4, overrides the config file")
	pf.StringVar(&a.model, "model", "", "camera model glob, e.g. \"Canon*\"")
	pf.StringVar(&a.port, "port", "", "camera port glob, e.g. \"usb:*\"")

	root.AddCommand(
		a.listCmd(),
		a.abilitiesCmd(),
		a.configCmd(),
		a.setCmd(),
		a.captureCmd(),
		a.previewCmd(),
		a.lsCmd(),
		a.getCmd(),
		a.rmCmd(),
		a.waitCmd(),
		a.triggerCmd(),
		a.serveCmd(),
	)
	return root
}

// setup loads the configuration and opens the native driver.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.out == nil {
		a.out = cmd.OutOrStdout()
	}
	if err := config.ValidateConfigPath(a.cfgPath); err != nil {
		return err
	}
	cfg, err := config.LoadOrDefault(a.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.debugLevel >= 0 {
		cfg.Defaults.DebugLevel = a.debugLevel
	}
	if a.model == "" {
		a.model = cfg.Camera.Model
	}
	if a.port == "" {
		a.port = cfg.Camera.Port
	}
	a.cfg = cfg

	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", a.cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Mock camera", cfg.Camera.MockCamera)

	if a.driver == nil {
		d, err := native.NewDriver(cfg.Camera.MockCamera)
		if err != nil {
			return fmt.Errorf("init camera driver: %w", err)
		}
		a.driver = d
	}
	return nil
}

func (a *app) close() error {
	if a.driver == nil {
		return nil
	}
	return a.driver.Close()
}

// selectCamera picks the first detected camera matching --model and
// --port, or the first detected camera when neither is set.
func (a *app) selectCamera() (*gphoto.Camera, error) {
	if a.model == "" && a.port == "" {
		return gphoto.First(a.driver)
	}

	preds := make([]func(*gphoto.Camera) bool, 0, 2)
	if a.model != "" {
		p, err := gphoto.MatchModel(a.model)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	if a.port != "" {
		p, err := gphoto.MatchPort(a.port)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}

	cameras, err := gphoto.Where(a.driver, func(c *gphoto.Camera) bool {
		for _, p := range preds {
			if !p(c) {
				return false
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if len(cameras) == 0 {
		return nil, fmt.Errorf("%w matching model %q port %q", gphoto.ErrNoDevices, a.model, a.port)
	}
	return cameras[0], nil
}

// withCamera runs fn on the selected camera and finalizes it afterwards.
func (a *app) withCamera(fn func(*gphoto.Camera) error) error {
	c, err := a.selectCamera()
	if err != nil {
		return err
	}
	debug.Camera(c.Model, c.Port)
	return gphoto.Open(a.driver, c.Model, c.Port, fn)
}

// ignoreCancel treats a cancelled context as a clean stop.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
