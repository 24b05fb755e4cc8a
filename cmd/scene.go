package cmd

import (
	"errors"

	"github.com/goksuguvendiren/optix-renderer/scene/reader"
	"github.com/urfave/cli"
)

// Display scene info.
func InspectScene(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}

	sc, err := reader.ReadScene(ctx.Args().First())
	if err != nil {
		return err
	}

	logger.Noticef("scene information:\n%s", sc.Stats())

	if err = sc.Validate(); err != nil {
		return err
	}
	logger.Notice("scene is valid")
	return nil
}
