// Package graphqlwsclient implements a client engine for the
// graphql-transport-ws subprotocol: a long-lived, bidirectional,
// multiplexed WebSocket channel carrying many concurrent GraphQL
// subscriptions.
//
// A Builder performs the connection_init/connection_ack handshake and
// produces a Client handle plus a connection actor goroutine. The Client is
// used to start subscriptions, each of which returns a Subscription that
// yields one decoded value per server message:
//
//	conn, _, err := gorillatransport.Dial(ctx, "wss://example.com/graphql", nil)
//	client, actor, err := graphqlwsclient.NewBuilder(conn).Build()
//	go actor.Run(ctx)
//
//	sub, err := graphqlwsclient.Subscribe[MyResponse](ctx, client, myOperation)
//	for {
//		resp, err := sub.Next(ctx)
//		if err == graphqlwsclient.ErrSubscriptionComplete {
//			break
//		}
//	}
//
// The package never dials a socket itself; it is handed a transport.Connection
// built by one of the adapters in transport/gorilla or transport/coderws (or
// any caller-supplied implementation).
package graphqlwsclient
