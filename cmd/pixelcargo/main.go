package main

import (
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	pixelcargo "github.com/pixelcargo/pixelcargo"
	"github.com/pixelcargo/pixelcargo/analyze"
	"github.com/pixelcargo/pixelcargo/imageio"
	"github.com/pixelcargo/pixelcargo/utilities/compression"
)

var (
	labelColor   = color.New(color.FgBlue).SprintFunc()
	successColor = color.New(color.FgGreen).SprintFunc()
	alertColor   = color.New(color.FgRed, color.Bold).SprintFunc()
)

func main() {
	app := cli.App{
		Name:  "pixelcargo",
		Usage: "Pack data into images, densely or steganographically",
		Commands: []*cli.Command{
			{
				Name:      "encode",
				Usage:     "Frame a payload file and write it into an image",
				Action:    encodeCommand,
				ArgsUsage: "PAYLOAD_FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "layout", Aliases: []string{"l"}, Required: true,
						Usage: "pixel layout tag (rgba8, g16, lo3, ...)"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true,
						Usage: "output PNG path"},
					&cli.StringFlag{Name: "carrier",
						Usage: "carrier image to embed into (lo layouts only)"},
					&cli.StringFlag{Name: "comment", Aliases: []string{"c"},
						Usage: "comment stored in the frame header"},
					&cli.StringFlag{Name: "seed", Aliases: []string{"s"},
						Usage: "block selection seed, defaults to {width}x{height}"},
					&cli.BoolFlag{Name: "entropy", Aliases: []string{"n"},
						Usage: "fill unused blocks with entropy-matched noise"},
					&cli.BoolFlag{Name: "compress", Aliases: []string{"x"},
						Usage: "zstd-compress the payload before framing"},
				},
			},
			{
				Name:      "decode",
				Usage:     "Extract the payload hidden in an image",
				Action:    decodeCommand,
				ArgsUsage: "IMAGE_FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "layout", Aliases: []string{"l"}, Required: true},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true},
					&cli.StringFlag{Name: "seed", Aliases: []string{"s"}},
					&cli.BoolFlag{Name: "compress", Aliases: []string{"x"},
						Usage: "payload was zstd-compressed at encode time"},
				},
			},
			{
				Name:      "info",
				Usage:     "Print the frame header without extracting the payload",
				Action:    infoCommand,
				ArgsUsage: "IMAGE_FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "layout", Aliases: []string{"l"}, Required: true},
					&cli.StringFlag{Name: "seed", Aliases: []string{"s"}},
				},
			},
			{
				Name:      "analyze",
				Usage:     "Report low-bit statistics for one or more images",
				Action:    analyzeCommand,
				ArgsUsage: "IMAGE_FILE...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "csv",
						Usage: "also write the reports to this CSV file"},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("fatal error: %s", err.Error())
	}
}

func commonOptions(c *cli.Context) pixelcargo.Options {
	return pixelcargo.Options{
		Seed:        c.String("seed"),
		EntropyFill: c.Bool("entropy"),
	}
}

func encodeCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one payload file, got %d arguments", c.NArg())
	}
	layout, err := pixelcargo.ParseLayout(c.String("layout"))
	if err != nil {
		return err
	}

	payload, err := os.ReadFile(c.Args().First())
	if err != nil {
		return pixelcargo.ErrIOFailed.Wrap(err)
	}
	if c.Bool("compress") {
		if payload, err = compression.CompressPayloadToBytes(payload); err != nil {
			return err
		}
	}

	var raster *pixelcargo.RasterBuffer
	switch layout.Mode {
	case pixelcargo.ModeDense:
		if c.IsSet("carrier") {
			return fmt.Errorf("layout %s synthesizes its own image; --carrier only applies to lo layouts", layout)
		}
		if !imageio.SupportsPNGWrite(layout) {
			return pixelcargo.ErrUnsupportedLayout.WithMessage(fmt.Sprintf(
				"the PNG writer cannot represent %s; use g8, g16, rgba8 or rgba16", layout))
		}
		frame, err := pixelcargo.NewFrame(c.String("comment"), payload)
		if err != nil {
			return err
		}
		if raster, err = pixelcargo.SynthesizeRaster(layout, frame.EncodedBytes()); err != nil {
			return err
		}
	case pixelcargo.ModeEmbed:
		if !c.IsSet("carrier") {
			return fmt.Errorf("layout %s embeds into an existing image; pass --carrier", layout)
		}
		if raster, err = readRaster(c.String("carrier")); err != nil {
			return err
		}
	}

	opts := commonOptions(c)
	if _, err := pixelcargo.Encode(raster, layout, payload, c.String("comment"), opts); err != nil {
		return err
	}

	out, err := os.Create(c.String("output"))
	if err != nil {
		return pixelcargo.ErrIOFailed.Wrap(err)
	}
	defer out.Close()
	if err := imageio.WritePNG(out, raster); err != nil {
		return err
	}

	fmt.Printf("%s wrote %s (%dx%d, %d payload bytes)\n",
		successColor("ok:"), c.String("output"), raster.Width, raster.Height, len(payload))
	return nil
}

func decodeCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one image file, got %d arguments", c.NArg())
	}
	layout, err := pixelcargo.ParseLayout(c.String("layout"))
	if err != nil {
		return err
	}
	raster, err := readRaster(c.Args().First())
	if err != nil {
		return err
	}

	payload, err := pixelcargo.Decode(raster, layout, commonOptions(c))
	if err != nil {
		return err
	}
	if c.Bool("compress") {
		if payload, err = compression.DecompressPayloadToBytes(payload); err != nil {
			return err
		}
	}

	if err := os.WriteFile(c.String("output"), payload, 0o644); err != nil {
		return pixelcargo.ErrIOFailed.Wrap(err)
	}
	fmt.Printf("%s wrote %d bytes to %s\n",
		successColor("ok:"), len(payload), c.String("output"))
	return nil
}

func infoCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one image file, got %d arguments", c.NArg())
	}
	layout, err := pixelcargo.ParseLayout(c.String("layout"))
	if err != nil {
		return err
	}
	raster, err := readRaster(c.Args().First())
	if err != nil {
		return err
	}

	hdr, err := pixelcargo.ReadHeader(raster, layout, commonOptions(c))
	if err != nil {
		return err
	}

	capacity := layout.CapacityBytes(raster.Width, raster.Height, raster.Channels)
	fmt.Printf("%s %d\n", labelColor("Version:"), hdr.Version)
	fmt.Printf("%s %q\n", labelColor("Comment:"), hdr.Comment)
	fmt.Printf("%s %d bytes CRC[%08X]\n", labelColor("Payload:"), hdr.PayloadLength, hdr.Checksum)
	fmt.Printf("%s %d of %d bytes used\n", labelColor("Carrier:"),
		hdr.EncodedBytes(), capacity)
	return nil
}

func analyzeCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("expected at least one image file")
	}

	reports, batchErr := analyze.Files(c.Args().Slice())
	for _, report := range reports {
		verdict := successColor("clean")
		if report.Suspicious {
			verdict = alertColor("suspicious")
		}
		fmt.Printf("%s: %dx%d/%d lsb-entropy=%.4f chi2=%.4f %s\n",
			report.File, report.Width, report.Height, report.Channels,
			report.LSBEntropy, report.ChiSquare, verdict)
	}

	if path := c.String("csv"); path != "" && len(reports) > 0 {
		f, err := os.Create(path)
		if err != nil {
			return pixelcargo.ErrIOFailed.Wrap(err)
		}
		defer f.Close()
		if err := analyze.WriteCSV(f, reports); err != nil {
			return err
		}
	}
	return batchErr
}

func readRaster(path string) (*pixelcargo.RasterBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pixelcargo.ErrIOFailed.Wrap(err)
	}
	defer f.Close()
	return imageio.ReadImage(f)
}
