// Command flashvnc is a thin-client RFB viewer: it dials a VNC server,
// decodes framebuffer updates, and streams them to a browser over a
// websocket instead of opening a native window.
package main

import (
	"net"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"

	"github.com/pid0/flashvnc/internal/config"
	"github.com/pid0/flashvnc/internal/metrics"
	"github.com/pid0/flashvnc/internal/rfbsession"
	"github.com/pid0/flashvnc/internal/webview"
)

var (
	listenAddr = flag.String("listen", ":8080", "address the browser client and /metrics are served on")
	configPath = flag.String("config", "", "path to a YAML defaults file")
	quality    = flag.String("quality", "", "encoding quality preset, overrides the config file")
	throttle   = flag.Bool("throttle", false, "enable draw-paced frame delivery")
	benchmark  = flag.Bool("benchmark", false, "print per-second FPS lines to stdout")
	sdl        = flag.Bool("sdl", false, "select the SDL front-end instead of the browser front-end (not built into this binary)")
)

func main() {
	flag.Parse()
	logger := log.Default()

	if err := run(logger); err != nil {
		logger.Fatal(err)
	}
}

func run(logger *log.Logger) error {
	if flag.NArg() != 1 {
		return errors.New("usage: flashvnc [flags] host:port")
	}
	host, portStr, err := net.SplitHostPort(flag.Arg(0))
	if err != nil {
		return errors.Wrap(err, "parsing host:port")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return errors.Wrapf(err, "parsing port %q", portStr)
	}

	cfg := config.Defaults()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			return err
		}
	}
	if *quality != "" {
		cfg.Quality = *quality
	}
	resolvedQuality, err := cfg.ResolvedQuality()
	if err != nil {
		return err
	}

	throttleOn := cfg.Throttle
	if flag.CommandLine.Changed("throttle") {
		throttleOn = *throttle
	}

	if *sdl {
		logger.Warn("--sdl was given but the SDL front-end isn't built in this client; serving the browser front-end instead")
	}

	m := metrics.New()
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.Handle("/", webview.Handler(logger, func(v *webview.View) {
		sessCfg := rfbsession.Config{
			Host:              host,
			Port:              port,
			Quality:           resolvedQuality,
			Throttle:          throttleOn,
			Benchmark:         *benchmark,
			ZeroCopyThreshold: cfg.ZeroCopyThreshold,
			Logger:            logger,
			Metrics:           m,
		}
		// One browser tab dials one fresh RFB session; flashvnc does not
		// multiplex several viewers onto a single server connection.
		sess, err := rfbsession.Dial(sessCfg, v)
		if err != nil {
			logger.Error("dialing RFB server failed", "err", err)
			return
		}
		go func() {
			defer sess.Close()
			if err := sess.Run(); err != nil {
				logger.Info("session ended", "err", err)
			}
		}()
	}))

	logger.Info("listening", "addr", *listenAddr, "target", net.JoinHostPort(host, portStr))
	if err := http.ListenAndServe(*listenAddr, mux); err != nil {
		return errors.Wrap(err, "http server")
	}
	return nil
}
