package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/gpcam/internal/gphoto"
	"github.com/cjeanneret/gpcam/internal/gphoto/native"
	"github.com/cjeanneret/gpcam/internal/logic/frame"
	"github.com/cjeanneret/gpcam/internal/logic/tether"
)

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List detected cameras",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cameras, err := gphoto.All(a.driver)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "MODEL\tPORT")
			fmt.Fprintln(w, "-----\t----")
			for _, c := range cameras {
				fmt.Fprintf(w, "%s\t%s\n", c.Model, c.Port)
			}
			return w.Flush()
		},
	}
}

func (a *app) abilitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abilities",
		Short: "Show what the selected camera supports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCamera(func(c *gphoto.Camera) error {
				ab, err := c.Abilities()
				if err != nil {
					return err
				}
				pi, err := c.PortInfo()
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
				fmt.Fprintf(w, "Model\t%s\n", ab.Model)
				fmt.Fprintf(w, "Port\t%s (%s)\n", pi.Path, pi.Name)
				if ab.USBVendor != 0 {
					fmt.Fprintf(w, "USB\t%04x:%04x\n", ab.USBVendor, ab.USBProduct)
				}
				for _, op := range native.Operations() {
					ok, err := c.Can(op)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%s\t%s\n", op, yesNo(ok))
				}
				fmt.Fprintf(w, "delete files\t%s\n", yesNo(ab.FileOperations&native.FileOperationDelete != 0))
				fmt.Fprintf(w, "file previews\t%s\n", yesNo(ab.FileOperations&native.FileOperationPreview != 0))
				fmt.Fprintf(w, "exif\t%s\n", yesNo(ab.FileOperations&native.FileOperationEXIF != 0))
				return w.Flush()
			})
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config [key]",
		Short: "Dump the configuration tree, or one key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCamera(func(c *gphoto.Camera) error {
				if len(args) == 1 {
					wd, err := c.Get(args[0])
					if err != nil {
						return err
					}
					printWidget(a.out, wd)
					return nil
				}
				root, err := c.Window(false)
				if err != nil {
					return err
				}
				return printTree(a.out, root)
			})
		},
	}
}

func printTree(out io.Writer, root *gphoto.Widget) error {
	return root.Walk(func(wd *gphoto.Widget) error {
		depth := strings.Count(wd.Path(), "/") - 1
		indent := strings.Repeat("  ", depth)
		if wd.IsContainer() {
			fmt.Fprintf(out, "%s%s: %s\n", indent, wd.Name, wd.Label)
			return nil
		}
		fmt.Fprintf(out, "%s%s (%s) = %s%s\n", indent, wd.Name, wd.Type, wd.String(), options(wd))
		return nil
	})
}

// maxListedSteps is the largest range printed step by step.
const maxListedSteps = 32

func printWidget(out io.Writer, wd *gphoto.Widget) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Path\t%s\n", wd.Path())
	fmt.Fprintf(w, "Label\t%s\n", wd.Label)
	fmt.Fprintf(w, "Type\t%s\n", wd.Type)
	fmt.Fprintf(w, "Current\t%s\n", wd.String())
	if wd.ReadOnly {
		fmt.Fprintln(w, "Read-only\tyes")
	}
	if rng, ok := wd.Range(); ok {
		fmt.Fprintf(w, "Range\t%s\n", rng)
		if v, ok := wd.Value().(float64); ok && !rng.Contains(v) {
			fmt.Fprintln(w, "Warning\tcurrent value outside range")
		}
		if vals := rng.Values(); len(vals) > 0 && len(vals) <= maxListedSteps {
			strs := make([]string, len(vals))
			for i, v := range vals {
				strs[i] = strconv.FormatFloat(v, 'g', -1, 64)
			}
			fmt.Fprintf(w, "Steps\t%s\n", strings.Join(strs, " "))
		}
	}
	for _, ch := range wd.Choices() {
		fmt.Fprintf(w, "Choice\t%s\n", ch)
	}
	w.Flush()
}

// options renders the allowed values of wd after its current value.
func options(wd *gphoto.Widget) string {
	var s string
	if rng, ok := wd.Range(); ok {
		s = " [" + rng.String() + "]"
	}
	if ch := wd.Choices(); len(ch) > 0 {
		s = " [" + strings.Join(ch, ", ") + "]"
	}
	if wd.ReadOnly {
		s += " (read-only)"
	}
	return s
}

func (a *app) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set key=value...",
		Short: "Change configuration values and commit them in one save",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(args)
			if err != nil {
				return err
			}
			return a.withCamera(func(c *gphoto.Camera) error {
				if err := c.Update(values); err != nil {
					return err
				}
				keys := make([]string, 0, len(values))
				for k := range values {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					wd, err := c.Get(k)
					if err != nil {
						return err
					}
					fmt.Fprintf(a.out, "%s = %s\n", k, wd.String())
				}
				return nil
			})
		},
	}
}

// parseAssignments turns "iso=400" arguments into Update input.
func parseAssignments(args []string) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		if _, dup := values[k]; dup {
			return nil, fmt.Errorf("key %q given twice", k)
		}
		values[k] = v
	}
	return values, nil
}

func (a *app) captureCmd() *cobra.Command {
	var dir string
	var del, remote bool
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture an image, optionally downloading it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if del && dir == "" {
				return fmt.Errorf("--delete needs --download")
			}
			return a.withCamera(func(c *gphoto.Camera) error {
				var f *gphoto.File
				var err error
				if remote {
					f, err = triggerAndWait(c)
				} else {
					f, err = c.CaptureImage()
				}
				if err != nil {
					return err
				}
				if dir == "" {
					fmt.Fprintln(a.out, f.FilePath)
					return nil
				}
				shot, err := tether.NewSession(c, tether.Options{Dir: dir, DeleteAfter: del}).Download(f)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s -> %s (%d bytes)\n", shot.Remote, shot.Local, shot.Bytes)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "download", "", "download the capture into this directory")
	cmd.Flags().BoolVar(&del, "delete", false, "delete the capture from the card after download")
	cmd.Flags().BoolVar(&remote, "trigger", false, "fire the shutter and wait for the camera to report the file")
	return cmd
}

// triggerAndWait fires the shutter and blocks until the camera
// announces the new file.
func triggerAndWait(c *gphoto.Camera) (*gphoto.File, error) {
	if err := c.TriggerCapture(); err != nil {
		return nil, err
	}
	ev, err := c.WaitFor(gphoto.EventFileAdded)
	if err != nil {
		return nil, err
	}
	return ev.(gphoto.FileAddedEvent).File, nil
}

func (a *app) previewCmd() *cobra.Command {
	var width int
	var out string
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Grab one live-view frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCamera(func(c *gphoto.Camera) error {
				f, err := c.Preview()
				if err != nil {
					return err
				}
				data, err := f.Data()
				if err != nil {
					return err
				}
				if width > 0 {
					if data, err = frame.Resize(data, width, frame.DefaultQuality); err != nil {
						return err
					}
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write preview: %w", err)
				}
				fmt.Fprintf(a.out, "%s (%d bytes)\n", out, len(data))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&width, "width", 0, "resize to this width, keeping the aspect ratio")
	cmd.Flags().StringVarP(&out, "output", "o", "preview.jpg", "output file")
	return cmd
}

func (a *app) waitCmd() *cobra.Command {
	var forType string
	var timeoutMs int
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Print camera events",
		Long: `Without --for, wait once and print the event. With --for, print
events until one of the given type arrives or the command is interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var want gphoto.EventType
			if forType != "" {
				t, err := gphoto.ParseEventType(forType)
				if err != nil {
					return err
				}
				want = t
			}
			timeout := a.cfg.WaitTimeout()
			if timeoutMs > 0 {
				timeout = time.Duration(timeoutMs) * time.Millisecond
			}
			ctx := cmd.Context()
			return a.withCamera(func(c *gphoto.Camera) error {
				for {
					ev, err := c.Wait(timeout)
					if err != nil {
						return err
					}
					fmt.Fprintln(a.out, eventLine(ev))
					if forType == "" || ev.Type() == want {
						return nil
					}
					if err := ctx.Err(); err != nil {
						return ignoreCancel(err)
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&forType, "for", "", "event type: file-added, folder-added, capture-complete, timeout, unknown")
	cmd.Flags().IntVar(&timeoutMs, "timeout", 0, "per-wait timeout in ms (default from config)")
	return cmd
}

func eventLine(ev gphoto.Event) string {
	switch e := ev.(type) {
	case gphoto.FileAddedEvent:
		return fmt.Sprintf("%s\t%s", e.Type(), e.File.FilePath)
	case gphoto.FolderAddedEvent:
		return fmt.Sprintf("%s\t%s", e.Type(), e.Folder)
	case gphoto.UnknownEvent:
		if e.HasData {
			return fmt.Sprintf("%s\t%s", e.Type(), e.Data)
		}
	}
	return ev.Type().String()
}
