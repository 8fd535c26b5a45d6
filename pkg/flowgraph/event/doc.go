// Package event is an in-process publish/subscribe bus.
//
// The assistant publishes one event per completed turn; the web server
// subscribes and forwards them to connected websocket clients. Each
// subscription drains its own buffered channel on its own goroutine, so a
// slow subscriber never stalls a chat turn when the bus is non-blocking.
//
//	bus := event.NewBus(event.BusConfig{NonBlocking: true})
//	defer bus.Close()
//
//	sub, _ := bus.Subscribe([]string{"turn.completed"}, func(ctx context.Context, e event.Event) error {
//	    return hub.Broadcast(e)
//	})
//	defer sub.Unsubscribe()
//
//	bus.Publish(ctx, event.New("turn.completed", "assistant", threadID, payload))
package event
