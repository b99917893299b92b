// Command subscriber is a minimal demonstration of the one-shot
// BuildAndSubscribe convenience: dial a server, start a single subscription,
// and print every value until the server completes it.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"

	"github.com/dolmen-go/jsonmap"

	graphqlwsclient "github.com/obmarg/graphql-ws-client"
	gorillatransport "github.com/obmarg/graphql-ws-client/transport/gorilla"
)

func main() {
	url := "ws://localhost:8080/graphql"
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	conn, _, err := gorillatransport.Dial(ctx, url, http.Header{})
	if err != nil {
		log.Fatalf("dial: %v", err)
	}

	op := graphqlwsclient.RawOperation{
		Query: `subscription { messagePosted { id text } }`,
	}

	sub, err := graphqlwsclient.BuildAndSubscribe[jsonmap.Ordered](ctx, conn, op)
	if err != nil {
		log.Fatalf("build and subscribe: %v", err)
	}
	defer sub.Stop()

	for {
		value, err := sub.Next(ctx)
		if err == graphqlwsclient.ErrSubscriptionComplete {
			fmt.Println("subscription complete")
			return
		}
		if err != nil {
			log.Fatalf("next: %v", err)
		}
		fmt.Printf("%v\n", value)
	}
}
