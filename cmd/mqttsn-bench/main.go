package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/golang-io/mqttsn"
	"golang.org/x/sync/errgroup"
)

// mqttsn-bench spins up N concurrent sessions against one gateway, each
// publishing once a second, to exercise the engine's reconnect and retry
// paths under load the way the pack teacher's own bench does for classic
// MQTT.
func main() {
	group, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 100; i++ {
		i := i
		cfg := mqttsn.NewConfig(
			mqttsn.WithBroker("127.0.0.1:1884"),
			mqttsn.WithClientID(fmt.Sprintf("bench-%d", i)),
			mqttsn.WithKeepAlive(30*time.Second),
		)
		topicName := fmt.Sprintf("topic-%d", i)
		c := mqttsn.New(cfg, []string{topicName}, func(name string, payload []byte) {
			log.Printf("id=%s, topic=%s, msg=%s", cfg.ClientID, name, payload)
		})

		group.Go(func() error {
			return c.Run(ctx)
		})

		group.Go(func() error {
			timer := time.NewTimer(time.Second)
			defer timer.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-timer.C:
					if c.Status() == mqttsn.TopicRegistered {
						if err := c.Publish(ctx, topicName, []byte("hello world"), false, 0); err != nil {
							log.Printf("id=%s, publish: %v", cfg.ClientID, err)
						}
					}
					timer.Reset(time.Second)
				}
			}
		})
	}
	if err := group.Wait(); err != nil {
		log.Fatal(err)
	}
}
