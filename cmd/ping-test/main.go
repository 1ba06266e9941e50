package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/digineo/pingwatch/ping"
)

func main() {
	var attempts uint
	var timeout time.Duration
	var bind4, bind6 string
	var privileged bool
	flag.UintVar(&attempts, "attempts", 3, "number of attempts")
	flag.DurationVar(&timeout, "timeout", time.Second, "timeout for a single echo request")
	flag.StringVar(&bind4, "bind4", "0.0.0.0", "IPv4 bind address")
	flag.StringVar(&bind6, "bind6", "::", "IPv6 bind address")
	flag.BoolVar(&privileged, "privileged", false, "use raw sockets")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Println("Usage:", os.Args[0], "[options] host")
		flag.PrintDefaults()
		os.Exit(2)
	}

	remote, err := net.ResolveIPAddr("ip", flag.Arg(0))
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	pinger, err := ping.New(bind4, bind6, privileged)
	if err != nil {
		fmt.Printf("Unable to bind: %s\n", err)
		os.Exit(2)
	}
	defer pinger.Close()

	rtt, err := pinger.PingAttempts(remote, timeout, int(attempts))
	if err != nil {
		fmt.Println(err)
		pinger.Close()
		os.Exit(1)
	}
	fmt.Printf("ping successful, rtt=%v\n", rtt)
}
