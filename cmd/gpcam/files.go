package main

import (
	"fmt"
	"path"

	"github.com/spf13/cobra"

	"github.com/cjeanneret/gpcam/internal/gphoto"
	"github.com/cjeanneret/gpcam/internal/gphoto/native"
)

func (a *app) lsCmd() *cobra.Command {
	var recursive bool
	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List folders and files on camera storage",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "/"
			if len(args) == 1 {
				root = args[0]
			}
			return a.withCamera(func(c *gphoto.Camera) error {
				dir := c.Filesystem(root)
				if recursive {
					return dir.Walk(func(f *gphoto.Folder, files []*gphoto.File) error {
						for _, file := range files {
							fmt.Fprintln(a.out, file.FilePath)
						}
						return nil
					})
				}
				folders, err := dir.Folders()
				if err != nil {
					return err
				}
				for _, f := range folders {
					fmt.Fprintln(a.out, f.Name()+"/")
				}
				files, err := dir.Files()
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintln(a.out, f.Name)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "list every file below path")
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	var out, kind string
	cmd := &cobra.Command{
		Use:   "get path",
		Short: "Download a file from camera storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ft, ok := native.ParseFileType(kind)
			if !ok {
				return fmt.Errorf("unknown file type %q", kind)
			}
			p := gphoto.SplitPath(args[0])
			dst := out
			if dst == "" {
				dst = p.Name
				if ft != native.FileNormal {
					dst = ft.String() + "_" + p.Name
				}
			}
			return a.withCamera(func(c *gphoto.Camera) error {
				// The parent of the file path is the folder holding it.
				f, err := c.File(c.Filesystem(args[0]).Up().File(p.Name), ft)
				if err != nil {
					return err
				}
				if err := f.Save(dst); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s -> %s\n", path.Join(p.Folder, p.Name), dst)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "local file (default: the remote name)")
	cmd.Flags().StringVar(&kind, "type", "normal", "file variant: normal, raw, preview, exif, audio, metadata")
	return cmd
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm path",
		Short: "Delete a file from camera storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := gphoto.SplitPath(args[0])
			return a.withCamera(func(c *gphoto.Camera) error {
				if err := c.Filesystem(p.Folder).File(p.Name).Delete(); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "deleted", p)
				return nil
			})
		},
	}
}
