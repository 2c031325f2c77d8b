package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/spf13/viper"

	cs "github.com/spectator-tech/cluster-spectator/internal"
	"github.com/spectator-tech/cluster-spectator/internal/healthchecker"
	"github.com/spectator-tech/cluster-spectator/internal/metastore/postgres"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var serverID = flag.String("id", uuid.New().String(), "A unique identifier for the server. Defaults to a new uuid.")
var cluster = flag.String("cluster", "default-cluster", "The name of the cluster whose topology this spectator mirrors")
var nodePort = flag.Int("node-port", 7946, "The bind port for the cluster node")
var advertise = flag.String("advertise", "", "The address that this node advertises on within the cluster")
var grpcPort = flag.Int("grpc-port", 50052, "The bind port for the grpc server")
var httpPort = flag.Int("http-port", 8082, "The bind port for the http debug server")
var join = flag.String("join", "", "A comma-separated list of 'host:port' addresses for nodes in the cluster to join to")
var refreshInterval = flag.Duration("refresh-interval", 30*time.Second, "How often the cache re-checks its dirty flags without a notification")
var configPath = flag.String("config", "./localconfig/config.yaml", "The path to the server config")

type Config struct {
	DebugServer struct {
		Enabled bool
	}

	Postgres struct {
		Host     string
		Port     int
		Database string
	}
}

func main() {

	flag.Parse()

	viper.SetConfigFile(*configPath)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Failed to load server config file: %v", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Failed to Unmarshal server config: %v", err)
	}

	pgUsername := viper.GetString("POSTGRES_USERNAME")
	pgPassword := viper.GetString("POSTGRES_PASSWORD")
	dsn := fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=disable",
		pgUsername,
		pgPassword,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Database,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("Failed to establish a connection to Postgres database: %v", err)
	}

	store, err := postgres.NewStore(db)
	if err != nil {
		log.Fatalf("Failed to initialize the postgres metadata store: %v", err)
	}

	log.Info("Starting cluster-spectator")
	log.Infof("  Version: %s", version)
	log.Infof("  Date: %s", date)
	log.Infof("  Commit: %s", commit)
	log.Infof("  Go version: %s", runtime.Version())

	spectatorOpts := []cs.SpectatorOption{
		cs.WithAccessor(store),
		cs.WithRefreshInterval(*refreshInterval),
		cs.WithNodeConfigs(cs.NodeConfigs{
			ServerID:    *serverID,
			ClusterName: *cluster,
			Advertise:   *advertise,
			Join:        *join,
			NodePort:    *nodePort,
			ServerPort:  *grpcPort,
		}),
	}
	spectator, err := cs.NewSpectator(spectatorOpts...)
	if err != nil {
		log.Fatalf("Failed to initialize the cluster-spectator: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go spectator.Run(ctx)

	addr := fmt.Sprintf(":%d", *grpcPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("Failed to start the TCP listener on '%v': %v", addr, err)
	}

	server := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthchecker.NewReadinessHandler(spectator.Healthy))

	go func() {
		reflection.Register(server)

		log.Infof("Starting grpc server at '%v'..", addr)

		if err := server.Serve(listener); err != nil {
			log.Fatalf("Failed to start the gRPC server: %v", err)
		}
	}()

	var debug *http.Server
	if cfg.DebugServer.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/debug/cache", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, spectator.ClusterDataCache.String())
		})
		mux.HandleFunc("/debug/ring", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "members: %v\nchecksum: %d\n", spectator.Ring.Members(), spectator.Ring.Checksum())
		})

		debug = &http.Server{
			Addr:    fmt.Sprintf(":%d", *httpPort),
			Handler: mux,
		}

		go func() {
			log.Infof("Starting http debug server at '%v'..", debug.Addr)

			if err := debug.ListenAndServe(); err != http.ErrServerClosed {
				log.Fatalf("Failed to start the http debug server: %v", err)
			}
		}()
	}

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	<-exit

	log.Info("Shutting Down..")
	cancel()

	if cfg.DebugServer.Enabled {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shutdownCancel()

		if err := debug.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Failed to gracefully shutdown the http debug server: %v", err)
		}
	}

	server.Stop()
	if err := spectator.Close(); err != nil {
		log.Errorf("Failed to gracefully close the cluster-spectator: %v", err)
	}

	log.Info("Shutdown Complete. Goodbye 👋")
}
