// spg290run - loads an SPG290 ROM image and runs it to a window or headless
//
// CLI flags follow the teacher's terse Usage-string convention, now
// expressed through urfave/cli/v2 rather than hand-rolled os.Args parsing.
//
// License: GPLv3 or later

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/urfave/cli/v2"

	"github.com/hyperscan-emu/spg290"
)

const (
	defaultWidth  = 256
	defaultHeight = 224
)

type runGame struct {
	engine *spg290.Engine
	target *spg290.EbitenPixelTarget
	scale  int
}

func (g *runGame) Update() error {
	if g.engine.Status().State == spg290.StateRunning {
		g.engine.RunFrame()
	}
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	return nil
}

func (g *runGame) Draw(screen *ebiten.Image) {
	if img := g.target.Image(); img != nil {
		screen.DrawImage(img, nil)
	}
}

func (g *runGame) Layout(int, int) (int, int) {
	return defaultWidth * g.scale, defaultHeight * g.scale
}

func run(c *cli.Context) error {
	romPath := c.Args().First()
	if romPath == "" {
		return cli.Exit("spg290run: a ROM path is required", 1)
	}

	data, err := os.ReadFile(romPath)
	if err != nil {
		return cli.Exit(fmt.Sprintf("spg290run: %v", err), 1)
	}

	headless := c.Bool("headless")
	scale := c.Int("scale")
	if scale < 1 {
		scale = 1
	}

	var target spg290.PixelTarget
	var ebitenTarget *spg290.EbitenPixelTarget
	if !headless {
		ebitenTarget = spg290.NewEbitenPixelTarget(defaultWidth*scale, defaultHeight*scale)
		target = ebitenTarget
	}

	engine := spg290.NewEngine(defaultWidth, defaultHeight, spg290.FormatRGB565, target)
	if err := engine.LoadRom(data); err != nil {
		return cli.Exit(fmt.Sprintf("spg290run: %v", err), 1)
	}

	if bp := c.String("break"); bp != "" {
		addr, err := strconv.ParseUint(bp, 0, 32)
		if err != nil {
			return cli.Exit(fmt.Sprintf("spg290run: invalid --break address %q: %v", bp, err), 1)
		}
		engine.CPU().SetBreakpoint(uint32(addr))
	}

	engine.Start()

	if headless {
		for engine.Status().State == spg290.StateRunning {
			engine.RunFrame()
		}
		status := engine.Status()
		fmt.Printf("spg290run: stopped in state %s after %d frames, %d cycles, %d instructions\n",
			status.State, status.Frame, status.Cycles, status.Instructions)
		return nil
	}

	ebiten.SetWindowSize(defaultWidth*scale, defaultHeight*scale)
	ebiten.SetWindowTitle(fmt.Sprintf("spg290run - %s", romPath))
	ebiten.SetWindowResizable(true)

	game := &runGame{engine: engine, target: ebitenTarget, scale: scale}
	return ebiten.RunGame(game)
}

func main() {
	app := &cli.App{
		Name:      "spg290run",
		Usage:     "run an SPG290 ROM image",
		UsageText: "spg290run [options] <rom-path>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "headless", Usage: "run without a window, to completion or error"},
			&cli.StringFlag{Name: "break", Usage: "set a breakpoint at this address (hex or decimal) before starting"},
			&cli.IntFlag{Name: "scale", Value: 2, Usage: "window scale factor"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
