/*
 * COPYRIGHT 2020 Brightgate Inc.  All rights reserved.
 *
 * This copyright notice is Copyright Management Information under 17 USC 1202
 * and is included to protect this work and deter copyright infringement.
 * Removal or alteration of this Copyright Management Information without the
 * express written permission of Brightgate Inc is prohibited, and any
 * such unauthorized removal or alteration will be a violation of federal law.
 */

package main

import (
	"flag"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"lvapd/aputil"
	"lvapd/broker"
	"lvapd/controller"
	"lvapd/lvapproto"
)

const pname = "ap.lvapd"

var (
	listenAddr     = flag.String("listen", ":2819", "address to accept WTP connections on")
	metricsAddr    = flag.String("metrics-addr", ":9819", "address to serve /metrics on")
	brokerAddr     = flag.String("broker-endpoint", "tcp://*:2820", "ZMQ endpoint to publish events on")
	logLevel       = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	protoVersion   = flag.Int("proto-version", int(lvapproto.Version), "wire protocol version to require")
	heartbeatGrace = flag.Int("heartbeat-grace", 2, "missed HELLO periods tolerated before a WTP is declared dead")
)

var (
	slog *zap.SugaredLogger

	cleanup struct {
		chans []chan bool
		wg    sync.WaitGroup
	}
)

func addDoneChan() chan bool {
	dc := make(chan bool, 1)
	cleanup.chans = append(cleanup.chans, dc)
	cleanup.wg.Add(1)
	return dc
}

func signalHandler(wg *sync.WaitGroup, doneChan chan bool) {
	defer wg.Done()

	sig := make(chan os.Signal, 3)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case s := <-sig:
			slog.Infof("received signal %v", s)
			lvapdStop("")
			return
		case <-doneChan:
			return
		}
	}
}

func lvapdStop(msg string) {
	if msg != "" {
		slog.Infof("%s", msg)
	}
	for _, c := range cleanup.chans {
		c <- true
	}
}

// acceptLoop runs the WTP listener until it is closed, handing every
// accepted connection to ctrl.
func acceptLoop(wg *sync.WaitGroup, doneChan chan bool, ln net.Listener, ctrl *controller.Controller) {
	defer wg.Done()

	go func() {
		<-doneChan
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			slog.Infof("listener closed: %v", err)
			return
		}
		slog.Debugw("accepted wtp connection", "remote", conn.RemoteAddr())
		ctrl.Accept(conn)
	}
}

func main() {
	flag.Parse()
	rand.Seed(time.Now().Unix())

	slog = aputil.NewLogger(pname)
	defer slog.Sync()
	slog.Infof("starting")

	if err := aputil.LogSetLevel("log_level", *logLevel); err != nil {
		slog.Warnw("invalid log level, leaving default", "level", *logLevel, "error", err)
	}
	if byte(*protoVersion) != lvapproto.Version {
		slog.Warnw("requested protocol version not supported, speaking the only version this binary knows",
			"requested", *protoVersion, "supported", lvapproto.Version)
	}

	b, err := broker.New(pname, *brokerAddr, slog)
	if err != nil {
		slog.Fatalf("failed to start event broker: %v", err)
	}
	defer b.Close()

	ctrl := controller.New(slog, b)
	ctrl.SetHeartbeatGrace(*heartbeatGrace)

	http.Handle("/metrics", promhttp.HandlerFor(ctrl.Registry(), promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
			slog.Warnw("metrics server exited", "error", err)
		}
	}()

	ln, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		slog.Fatalf("failed to listen on %s: %v", *listenAddr, err)
	}
	slog.Infof("accepting wtp connections on %s", ln.Addr())

	go signalHandler(&cleanup.wg, addDoneChan())
	go acceptLoop(&cleanup.wg, addDoneChan(), ln, ctrl)

	cleanup.wg.Wait()
	slog.Infof("cleaning up")

	os.Exit(0)
}
