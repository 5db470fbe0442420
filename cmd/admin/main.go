package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/idkeeper/internal/admin"
	"github.com/dmitrijs2005/idkeeper/internal/logging"
	"github.com/dmitrijs2005/idkeeper/internal/server"
	"github.com/dmitrijs2005/idkeeper/internal/server/config"
	gs "github.com/dmitrijs2005/idkeeper/internal/server/grpc"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func main() {

	// a missing .env is fine
	_ = godotenv.Load()

	ctx := context.Background()

	open := func(ctx context.Context) (admin.Accounts, func() error, error) {
		cfg, err := config.LoadConfig()
		if err != nil {
			return nil, nil, err
		}
		logger, err := logging.New(os.Stderr, cfg.LogLevel)
		if err != nil {
			return nil, nil, err
		}
		app, err := server.NewApp(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return app.Users(), func() error { return app.Close(context.Background()) }, nil
	}

	dial := func(addr string) (admin.Remote, func() error, error) {
		conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, nil, err
		}
		return gs.NewClient(conn), conn.Close, nil
	}

	cli := admin.New(open, dial, os.Stdin, os.Stdout)
	if err := cli.Run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("%v", err)
	}
}
