package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-io/mqttsn"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := mqttsn.NewConfig(
		mqttsn.WithBroker("127.0.0.1:1884"),
		mqttsn.WithClientID("mqttsn-client-demo"),
		mqttsn.WithKeepAlive(60*time.Second),
	)
	c := mqttsn.New(cfg, []string{"/a", "/b"}, func(topicName string, payload []byte) {
		log.Printf("on: topic=%s payload=%s", topicName, payload)
	})

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return c.Run(ctx)
	})

	group.Go(func() error {
		deadline := time.Now().Add(5 * time.Second)
		for c.Status() != mqttsn.TopicRegistered {
			if time.Now().After(deadline) {
				return fmt.Errorf("topic registration did not complete in time")
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(50 * time.Millisecond):
			}
		}
		if err := c.Subscribe(ctx, "/a/#", 0); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if err := c.Publish(ctx, "/a", []byte(time.Now().Format("2006-01-02 15:04:05")), false, 0); err != nil {
				log.Printf("%v", err)
			}
			time.Sleep(time.Second)
		}
	})

	group.Go(func() error {
		defer cancel()
		ignore := make(chan os.Signal, 1)
		sign := make(chan os.Signal, 1)

		signal.Notify(ignore, syscall.SIGHUP) // 终端挂起或者控制进程终止(hang up)
		signal.Notify(sign, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

		select {
		case <-ctx.Done():
			log.Printf("ctx done")
			return ctx.Err()
		case sig := <-sign:
			return fmt.Errorf("got sign: %s", sig)
		}
	})

	if err := group.Wait(); err != nil {
		log.Fatal(err)
	}
}
