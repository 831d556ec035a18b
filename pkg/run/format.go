/*
   MediaDrive - removable media resolution for PC emulators
   Copyright (c) 2025, Alexander Vollschwitz

   This file is part of MediaDrive.

   MediaDrive is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   MediaDrive is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with MediaDrive. If not, see <http://www.gnu.org/licenses/>.
*/

package run

import (
	"context"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/xelalexv/mediadrive/pkg/fat"
	"github.com/xelalexv/mediadrive/pkg/format"
	"github.com/xelalexv/mediadrive/pkg/hostio"
	"github.com/xelalexv/mediadrive/pkg/media/base"
)

//
func NewFormat() *Format {

	var names []string
	for _, g := range format.Geometries() {
		names = append(names, g.Name)
	}

	f := &Format{}
	f.Runner = *NewRunner(
		"format -o|--output {file} [-g|--geometry {geometry}] [--size {bytes}] [-t|--type {fat type}] [-l|--label {label}]",
		"create a blank FAT formatted image",
		fmt.Sprintf(`
Use the format command to create a new, empty floppy or hard disk image. For
floppy images, give one of the known geometries: %s. For other sizes,
give the size in bytes.`, strings.Join(names, ", ")),
		"", runnerHelpEpilogue, f.Run)

	f.AddSetting(&f.Output, "output", "o", "", nil, "image file to create", true)
	f.AddSetting(&f.Geometry, "geometry", "g", "", "1.44M", "floppy geometry", false)
	f.AddSetting(&f.Size, "size", "", "", 0, "image size in bytes, instead of geometry", false)
	f.AddSetting(&f.Type, "type", "t", "", "auto", "FAT type: auto, 12, 16, or 32", false)
	f.AddSetting(&f.Label, "label", "l", "", "", "volume label", false)
	f.AddSetting(&f.Force, "force", "f", "", false, "overwrite an existing file", false)

	return f
}

//
type Format struct {
	Runner
	//
	Output   string
	Geometry string
	Size     int
	Type     string
	Label    string
	Force    bool
}

//
func (f *Format) Run() error {

	opts := fat.FormatOptions{Label: f.Label}

	if f.Size > 0 {
		opts.Size = f.Size
	} else if opts.Geometry = format.GeometryByName(f.Geometry); opts.Geometry == nil {
		return fmt.Errorf("unknown geometry: %s", f.Geometry)
	}

	switch strings.TrimPrefix(strings.ToLower(f.Type), "fat") {
	case "auto", "":
		opts.Type = fat.TypeAuto
	case "12":
		opts.Type = fat.FAT12
	case "16":
		opts.Type = fat.FAT16
	case "32":
		opts.Type = fat.FAT32
	default:
		return fmt.Errorf("unknown FAT type: %s", f.Type)
	}

	if _, err := os.Stat(f.Output); err == nil && !f.Force {
		return fmt.Errorf("%s already exists, use --force to overwrite", f.Output)
	}

	data, err := fat.Format(opts)
	if err != nil {
		return err
	}

	bridge := hostio.NewNative(hostio.Config{})
	if err := bridge.Persist(context.Background(), base.NewLocalSource(f.Output),
		data, hostio.PersistOptions{Force: true}); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"file": f.Output,
		"size": len(data)}).Info("image created")
	return nil
}
