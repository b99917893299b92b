// Command authenticated demonstrates sending a JWT-signed connection_init
// payload, the opaque-payload authentication path this module supports
// (and the only kind of auth flow it supports: see its non-goals).
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	graphqlwsclient "github.com/obmarg/graphql-ws-client"
	gorillatransport "github.com/obmarg/graphql-ws-client/transport/gorilla"
)

const appSecret = "GraphQL-is-awesome" // TODO get this from a secret store

// storedPasswordHash stands in for a row fetched from a user table; this
// example checks a password against it before minting a token, the way a
// real connection_init handler would authenticate the caller first.
var storedPasswordHash = mustHash("correct horse battery staple")

func mustHash(password string) []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	return hash
}

type connectionInitPayload struct {
	Authorization string `json:"Authorization"`
}

// Message is the typed shape this example decodes each subscription value
// into, via StructOperation.
type Message struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type messagePostedResponse struct {
	Data struct {
		MessagePosted Message `json:"messagePosted"`
	} `json:"data"`
}

func main() {
	url := "ws://localhost:8080/graphql"
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := bcrypt.CompareHashAndPassword(storedPasswordHash, []byte("correct horse battery staple")); err != nil {
		log.Fatalf("password check: %v", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"jti": "user-42",
		"iss": "github.com/obmarg/graphql-ws-client/example/authenticated",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(appSecret))
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}

	conn, _, err := gorillatransport.Dial(ctx, url, http.Header{})
	if err != nil {
		log.Fatalf("dial: %v", err)
	}

	client, connActor, err := graphqlwsclient.NewBuilder(
		conn,
		graphqlwsclient.WithInitPayload(connectionInitPayload{Authorization: "Bearer " + signed}),
		graphqlwsclient.WithKeepAlive(30*time.Second, 3),
	).Build()
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	go connActor.Run(ctx)

	op := graphqlwsclient.NewStructOperation[messagePostedResponse](
		`subscription { messagePosted { id text } }`, nil, "",
	)
	sub, err := graphqlwsclient.Subscribe[messagePostedResponse](ctx, client, op)
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}
	defer sub.Stop()

	for {
		resp, err := sub.Next(ctx)
		if err == graphqlwsclient.ErrSubscriptionComplete {
			return
		}
		if err != nil {
			log.Fatalf("next: %v", err)
		}
		log.Printf("message %s: %s", resp.Data.MessagePosted.ID, resp.Data.MessagePosted.Text)
	}
}
