package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"watchout/lib/watchout"
)

func main() {
	host := "0.0.0.0"
	typ := watchout.Production
	port := 0

	for _, arg := range os.Args[1:] {
		if v, ok := strings.CutPrefix(arg, "--type="); ok {
			typ = watchout.DeviceType(v)
		} else if v, ok := strings.CutPrefix(arg, "--port="); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: bad port %q\n", v)
				os.Exit(1)
			}
			port = n
		} else {
			host = arg
		}
	}
	if err := (watchout.Config{Host: host, Type: typ}).Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if port == 0 {
		port = typ.Port()
	}

	mock, err := watchout.ListenMock(net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer mock.Close()

	mock.OnLine(func(remote string, line string) {
		log.Printf("[mock] %s: %s", remote, line)
	})
	fmt.Printf("Mock %s listening on %s\n", typ, mock.Addr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Println()
}
