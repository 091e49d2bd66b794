// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/devblok/vkscene/utility/kar"
)

func currentUserName() string {
	u, err := user.Current()
	if err != nil || u.Name == "" {
		return "unknown"
	}
	return u.Name
}

func newPackCommand() *cobra.Command {
	var (
		output  string
		author  string
		version int64
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "pack <dir>",
		Short: "Pack a directory into a kar archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
			if force {
				flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			}
			dst, err := os.OpenFile(output, flags, 0o644)
			if os.IsExist(err) {
				return errors.Newf("%s exists, will not overwrite", output)
			}
			if err != nil {
				return errors.Wrap(err, "create archive")
			}

			count, err := packDirectory(dst, args[0], kar.Header{
				Author:      author,
				DateCreated: time.Now().Unix(),
				Version:     version,
			})
			if closeErr := dst.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				os.Remove(output)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "packed %d files into %s\n", count, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "out.kar", "destination file")
	cmd.Flags().StringVar(&author, "author", currentUserName(), "author stored in the archive")
	cmd.Flags().Int64Var(&version, "version", 1, "archive version")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite the destination")
	return cmd
}

// packDirectory archives every regular file under dir. Entries are named by
// their slash separated path as given, so packing Assets yields
// Assets/shaders/vert.spv and so on.
func packDirectory(w io.Writer, dir string, header kar.Header) (int, error) {
	builder, err := kar.NewBuilder(header)
	if err != nil {
		return 0, err
	}
	defer builder.Close()

	count := 0
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := builder.Add(filepath.ToSlash(filepath.Clean(path)), f); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return 0, errors.Wrapf(err, "pack %s", dir)
	}

	if _, err := builder.WriteTo(w); err != nil {
		return 0, err
	}
	return count, nil
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <archive>",
		Short: "List the files of a kar archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := kar.OpenFile(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return listArchive(cmd.OutOrStdout(), f.Archive)
		},
	}
}

func listArchive(w io.Writer, ar *kar.Archive) error {
	header := ar.Header()
	fmt.Fprintf(w, "author %s, version %d, created %s\n",
		header.Author, header.Version, time.Unix(header.DateCreated, 0).UTC().Format(time.RFC3339))

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "SIZE\tCOMPRESSED\tNAME\t")
	for _, e := range header.Index {
		fmt.Fprintf(tw, "%d\t%d\t%s\t\n", e.Size, e.CompressedSize, e.Name)
	}
	return tw.Flush()
}
