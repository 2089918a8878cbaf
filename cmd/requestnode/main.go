package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/arkeindustries/requestcore/internal/cachetick"
	"github.com/arkeindustries/requestcore/internal/config"
	"github.com/arkeindustries/requestcore/internal/db"
	"github.com/arkeindustries/requestcore/internal/dispatch"
	"github.com/arkeindustries/requestcore/internal/handler/examples"
	"github.com/arkeindustries/requestcore/internal/identity"
	"github.com/arkeindustries/requestcore/internal/metrics"
	"github.com/arkeindustries/requestcore/internal/notify"
	"github.com/arkeindustries/requestcore/internal/registry"
	"github.com/arkeindustries/requestcore/internal/spatialcache"
	"github.com/arkeindustries/requestcore/pkg/log"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	var flagConfigFile, flagEnvFile string
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Node configuration file")
	flag.StringVar(&flagEnvFile, "env", "./.env", "Optional .env file loaded before -config")
	flag.Parse()

	config.Init(flagEnvFile, flagConfigFile)

	if err := db.Connect(config.Keys.DBDriver, config.Keys.DBDSN); err != nil {
		log.Fatalf("requestnode: %v", err)
	}
	db.Migrate(db.Shared().DB)

	dbContexts := make([]*db.Context, config.Keys.Workers)
	for i := range dbContexts {
		dbContexts[i] = db.NewContext(db.Shared())
	}

	cacheTickInterval, err := time.ParseDuration(config.Keys.CacheTickInterval)
	if err != nil {
		log.Fatalf("requestnode: cache-tick-interval: %v", err)
	}

	cache := spatialcache.NewCache(0, 0, 1<<20, 1<<20)
	tick, err := cachetick.New(cache, cacheTickInterval)
	if err != nil {
		log.Fatalf("requestnode: %v", err)
	}
	tick.Start()
	defer tick.Shutdown()

	var verifier *identity.Verifier
	if config.Keys.JWTKeyEnv != "" {
		key := os.Getenv(config.Keys.JWTKeyEnv)
		if key == "" {
			log.Fatalf("requestnode: env var %s (jwt-key-env) is empty", config.Keys.JWTKeyEnv)
		}
		verifier = identity.NewVerifier([]byte(key))
	} else {
		verifier = identity.NewVerifier([]byte("dev-only-key-do-not-use-in-production"))
		log.Warn("requestnode: no jwt-key-env configured, using an insecure development key")
	}

	reg := registry.New(config.Keys.Workers)
	examples.RegisterPing(reg)
	examples.RegisterEcho(reg)
	examples.RegisterPagedUsers(reg)
	examples.RegisterLogin(reg, verifier)

	fanOut := notify.NewFanOut()
	if config.Keys.BrokerAddr != "" {
		broker, err := dialBroker(config.Keys.BrokerKind, config.Keys.BrokerAddr, config.Keys.AreaID)
		if err != nil {
			log.Fatalf("requestnode: broker: %v", err)
		}
		fanOut.SetBroker(broker, func(err error) {
			log.Errorf("requestnode: broker down, tearing down node: %v", err)
			os.Exit(1)
		})
	}

	dispatchMetrics := metrics.NewDispatch()
	pool := dispatch.NewPool(reg, dbContexts, fanOut, dispatchMetrics)

	var wg sync.WaitGroup

	tcpListener, err := net.Listen("tcp", config.Keys.TCPAddr)
	if err != nil {
		log.Fatalf("requestnode: tcp listen %s: %v", config.Keys.TCPAddr, err)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Infof("requestnode: tcp listening at %s", config.Keys.TCPAddr)
		serveTCP(tcpListener, pool, fanOut)
	}()

	router := mux.NewRouter()
	router.HandleFunc("/ws", func(rw http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(rw, r, nil)
		if err != nil {
			log.Warnf("requestnode: ws upgrade: %v", err)
			return
		}
		go handleWSConn(ws, pool, fanOut)
	})

	wsServer := &http.Server{
		Addr:         config.Keys.WSAddr,
		Handler:      router,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Infof("requestnode: websocket listening at %s", config.Keys.WSAddr)
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("requestnode: websocket server: %v", err)
		}
	}()

	var metricsServer *http.Server
	if config.Keys.MetricsAddr != "" {
		metricsServer = &http.Server{Addr: config.Keys.MetricsAddr, Handler: dispatchMetrics.Handler()}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Infof("requestnode: metrics listening at %s", config.Keys.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("requestnode: metrics server: %v", err)
			}
		}()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("requestnode: shutting down")

	tcpListener.Close()
	wsServer.Shutdown(context.Background())
	if metricsServer != nil {
		metricsServer.Shutdown(context.Background())
	}
	pool.Close()
	log.Info("requestnode: graceful shutdown complete")
}

// dialBroker connects to the configured broker transport. kind is "tcp"
// (internal/notify.TCPBroker) or "nats" (internal/notify.NATSBroker), per
// SPEC_FULL.md's domain-stack wiring of both transports behind the same
// notify.Broker interface.
func dialBroker(kind, addr string, areaID uint64) (notify.Broker, error) {
	switch kind {
	case "nats":
		return notify.DialNATSBroker(addr, areaIDSubject(areaID))
	default:
		return notify.DialTCPBroker(addr)
	}
}

func areaIDSubject(areaID uint64) string {
	return "area." + strconv.FormatUint(areaID, 10)
}
