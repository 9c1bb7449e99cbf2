package main

import (
	"github.com/spf13/cobra"

	"github.com/kbukum/npuflow/server"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the batch API over HTTP",
		Long: `Serve loads the model once and accepts batches on POST /v1/batches until
interrupted. /health, /ready and /info report component state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			app, sub, err := newApplication(cfg)
			if err != nil {
				return err
			}

			srv := server.New(cfg.Server, app.Logger.WithComponent("http"))
			srv.ApplyMiddleware()
			srv.RegisterDefaultEndpoints(cfg.Name, app.Components.HealthAll)
			server.NewBatchAPI(sub).Register(srv.GinEngine())
			if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}
}
