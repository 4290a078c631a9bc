// Copyright 2026 The Gantry Authors
// SPDX-License-Identifier: Apache-2.0

package deploy

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/pflag"

	"github.com/gantry-project/gantry/cmd/gantry/cli"
	"github.com/gantry-project/gantry/lib/archive"
)

// ExportCommand returns the "export" command.
func ExportCommand() *cli.Command {
	var configPath string
	var output string

	return &cli.Command{
		Name:    "export",
		Summary: "Write an archive as a zstd-compressed tarball",
		Description: `Export an archive, manifest included, as a zstd-compressed tarball.

Exports are for moving a deployed version off the host: seeding a
standby machine's archive directory, or retaining a copy before
pruning old archives. Entries are rooted at the archive ID, so
extracting the tarball into an archive directory recreates the
archive under its original name.`,
		Usage: "gantry export <archive-id> [flags]",
		Examples: []cli.Example{
			{
				Description: "Export to the default <id>.tar.zst in the current directory",
				Command:     "gantry export 2016-08-10-11-12-37",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("export", pflag.ContinueOnError)
			flags.StringVar(&configPath, "config", "", "config file path (overrides GANTRY_CONFIG)")
			flags.StringVarP(&output, "output", "o", "", "output file (default <archive-id>.tar.zst)")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one archive ID, got %d arguments", len(args))
			}
			return runExport(configPath, args[0], output)
		},
	}
}

func runExport(configPath, token, output string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	target, err := openStore(cfg).Resolve(token)
	if err != nil {
		return noChange(err)
	}

	if output == "" {
		output = target.ID + ".tar.zst"
	}

	file, err := os.Create(output)
	if err != nil {
		return err
	}
	defer file.Close()

	compressor, err := zstd.NewWriter(file)
	if err != nil {
		return err
	}

	if err := writeTar(compressor, target); err != nil {
		compressor.Close()
		os.Remove(output)
		return fmt.Errorf("exporting %s: %w", target.ID, err)
	}

	if err := compressor.Close(); err != nil {
		os.Remove(output)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(output)
		return err
	}

	fmt.Printf("exported %s to %s\n", target.ID, output)
	return nil
}

// writeTar writes the archive directory as a tar stream with entries
// rooted at the archive ID.
func writeTar(w io.Writer, target archive.Archive) error {
	tarWriter := tar.NewWriter(w)

	err := filepath.WalkDir(target.Location, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relative, err := filepath.Rel(target.Location, path)
		if err != nil {
			return err
		}
		if relative == "." {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		linkTarget := ""
		if entry.Type()&fs.ModeSymlink != 0 {
			linkTarget, err = os.Readlink(path)
			if err != nil {
				return err
			}
		}

		header, err := tar.FileInfoHeader(info, linkTarget)
		if err != nil {
			return err
		}
		header.Name = target.ID + "/" + filepath.ToSlash(relative)
		if entry.IsDir() {
			header.Name += "/"
		}

		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		source, err := os.Open(path)
		if err != nil {
			return err
		}
		_, copyErr := io.Copy(tarWriter, source)
		source.Close()
		return copyErr
	})
	if err != nil {
		return err
	}
	return tarWriter.Close()
}
