// Smoke client for the relay: identifies itself, optionally sends one chat
// message, then prints everything pushed to its private queues until
// interrupted.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	RelayURL string `envconfig:"RELAY_URL" default:"ws://localhost:8080/ws"`
	UserID   string `envconfig:"USER_ID" required:"true"`
	PeerID   string `envconfig:"PEER_ID"`
	Message  string `envconfig:"MESSAGE"`
}

type frame struct {
	Type       string `json:"type"`
	Content    string `json:"content,omitempty"`
	SenderID   string `json:"sender_id,omitempty"`
	ReceiverID string `json:"receiver_id,omitempty"`
}

type wireMessage struct {
	ID         uint64    `json:"id"`
	Content    string    `json:"content"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Kind       string    `json:"kind"`
	Timestamp  time.Time `json:"timestamp"`
}

func main() {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("config error: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(config.RelayURL, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", config.RelayURL, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(frame{Type: "chat.addUser", SenderID: config.UserID}); err != nil {
		log.Fatalf("addUser: %v", err)
	}
	fmt.Printf("identified as %s\n", config.UserID)

	if config.Message != "" && config.PeerID != "" {
		err := conn.WriteJSON(frame{
			Type:       "chat.send",
			Content:    config.Message,
			ReceiverID: config.PeerID,
		})
		if err != nil {
			log.Fatalf("send: %v", err)
		}
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	for {
		var m wireMessage
		if err := conn.ReadJSON(&m); err != nil {
			return
		}
		fmt.Printf("[%s] #%d %s -> %s: %s\n",
			m.Kind, m.ID, m.SenderID, m.ReceiverID, m.Content)
	}
}
