package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytwatch/internal/services"
	"github.com/desertthunder/ytwatch/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to an API endpoint
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	endpoint := cmd.StringArg("endpoint")
	if endpoint == "" {
		return fmt.Errorf("%w: endpoint, e.g. 'videos'", shared.ErrMissingArgument)
	}

	params, err := services.ParseParams(cmd.StringSlice("param"))
	if err != nil {
		return err
	}

	s, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	r.logger.Info("GET request", "endpoint", endpoint, "params", params.Encode())

	resp, err := s.YouTube().Raw(ctx, endpoint, params)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, cmd.Bool("pretty"))
	}

	if err := r.writeBytes(resp.Body); err != nil {
		return err
	}
	return r.writeBytes([]byte("\n"))
}
