package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/gpcam/internal/debug"
	"github.com/cjeanneret/gpcam/internal/gphoto"
	"github.com/cjeanneret/gpcam/internal/hw/gpio"
	"github.com/cjeanneret/gpcam/internal/logic/tether"
	"github.com/cjeanneret/gpcam/internal/web"
)

// rig is the GPIO side of a tethering station.
type rig struct {
	driver gpio.Driver
	button *gpio.Button
	led    *gpio.LED
}

func (a *app) openRig() (*rig, error) {
	debug.Step(1, "Initializing GPIO driver")
	debug.Value("Mock GPIO", a.cfg.GPIO.MockGPIO)
	drv, err := gpio.NewDriver(a.cfg.GPIO.MockGPIO)
	if err != nil {
		return nil, fmt.Errorf("init GPIO: %w", err)
	}
	btn, err := gpio.NewButton(drv, a.cfg.GPIO.ButtonPin, a.cfg.Debounce(), a.cfg.PollInterval())
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("init button: %w", err)
	}
	led, err := gpio.NewLED(drv, a.cfg.GPIO.LEDPin)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("init LED: %w", err)
	}
	debug.PrintStruct("GPIO config", a.cfg.GPIO)
	return &rig{driver: drv, button: btn, led: led}, nil
}

func (r *rig) Close() {
	if err := r.driver.Close(); err != nil {
		debug.Error(fmt.Errorf("closing GPIO driver: %w", err))
	}
}

// runAll runs every fn until the first one returns, cancels the rest
// and returns the first error that is not a cancellation.
func runAll(ctx context.Context, fns ...func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, len(fns))
	for _, fn := range fns {
		go func(fn func(context.Context) error) {
			errs <- ignoreCancel(fn(ctx))
		}(fn)
	}
	var first error
	for range fns {
		if err := <-errs; err != nil && first == nil {
			first = err
		}
		cancel()
	}
	return first
}

func (a *app) triggerCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Capture and download on every press of the GPIO shutter button",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.openRig()
			if err != nil {
				return err
			}
			defer r.Close()

			return a.withCamera(func(c *gphoto.Camera) error {
				debug.Step(2, "Starting tether session")
				sess := tether.NewSession(c, tether.Options{
					Dir:         a.cfg.Download.Dir,
					DeleteAfter: a.cfg.Download.DeleteAfter,
					LED:         r.led,
					WaitTimeout: a.cfg.WaitTimeout(),
					OnShot: func(s tether.Shot) {
						fmt.Fprintf(a.out, "%d\t%s -> %s (%d bytes)\n", s.Seq, s.Remote, s.Local, s.Bytes)
					},
				})
				fns := []func(context.Context) error{
					func(ctx context.Context) error { return sess.Run(ctx, r.button) },
				}
				if watch {
					fns = append(fns, sess.Watch)
				}
				return runAll(cmd.Context(), fns...)
			})
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "also download shots taken with the camera's own shutter")
	return cmd
}

// webOptions builds the handler options of serve from the config.
func (a *app) webOptions(sess *tether.Session, lock *sync.Mutex) web.Options {
	return web.Options{
		Session:         sess,
		Lock:            lock,
		FrameInterval:   a.cfg.FrameInterval(),
		ChangeThreshold: a.cfg.Web.ChangeThreshold,
	}
}

func (a *app) serveCmd() *cobra.Command {
	var port int
	var withTrigger, watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve live view, settings and capture over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("web-port") {
				a.cfg.Web.Port = port
				if err := a.cfg.Validate(); err != nil {
					return err
				}
			}

			var r *rig
			if withTrigger {
				var err error
				if r, err = a.openRig(); err != nil {
					return err
				}
				defer r.Close()
			}

			broadcaster := web.NewStatusBroadcaster()
			debug.SetOutput(io.MultiWriter(os.Stderr, web.BroadcastWriter(broadcaster)))

			return a.withCamera(func(c *gphoto.Camera) error {
				gctx, err := c.Context()
				if err != nil {
					return err
				}
				gctx.SetHandler(web.CameraMessages(broadcaster))

				lock := &sync.Mutex{}
				opts := tether.Options{
					Dir:         a.cfg.Download.Dir,
					DeleteAfter: a.cfg.Download.DeleteAfter,
					Lock:        lock,
					WaitTimeout: a.cfg.WaitTimeout(),
					OnShot: func(s tether.Shot) {
						broadcaster.BroadcastEvent("download", fmt.Sprintf("Saved %s (%d bytes)", s.Local, s.Bytes), s.Local)
					},
				}
				if r != nil {
					opts.LED = r.led
				}
				sess := tether.NewSession(c, opts)
				srv := web.NewServer(a.cfg.WebAddr(), broadcaster, c, a.webOptions(sess, lock))
				debug.Value("Web address", srv.Addr())

				fns := []func(context.Context) error{srv.Run}
				if r != nil {
					fns = append(fns, func(ctx context.Context) error { return sess.Run(ctx, r.button) })
				}
				if watch {
					fns = append(fns, sess.Watch)
				}
				return runAll(cmd.Context(), fns...)
			})
		},
	}
	cmd.Flags().IntVar(&port, "web-port", 8080, "HTTP port (default from config)")
	cmd.Flags().BoolVar(&withTrigger, "trigger", false, "also run the GPIO shutter button loop")
	cmd.Flags().BoolVar(&watch, "watch", false, "also download shots taken with the camera's own shutter")
	return cmd
}
