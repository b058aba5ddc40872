// Package main runs a demo WebSocket client for the route feed.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type feedEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	tenant := os.Getenv("TENANT_ID")
	if tenant == "" {
		tenant = "t_demo"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/routes/feed"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", tenant)
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var evt feedEvent
			if err := c.ReadJSON(&evt); err != nil {
				log.Printf("read: %v", err)
				return
			}
			b, _ := json.Marshal(evt.Data)
			log.Printf("WS <- %s: %s", evt.Type, b)
		}
	}()

	// Optimize a small problem so the feed has something to report.
	body := []byte(`{"planDate":"2025-03-10","packages":[
		{"id":"a","latitude":41.015,"longitude":28.979,"deliveryType":"express"},
		{"id":"b","latitude":41.036,"longitude":28.985,"deliveryType":"scheduled","timeWindow":{"start":"10:00","end":"12:00"}},
		{"id":"c","latitude":41.008,"longitude":29.020,"deliveryType":"standard"}]}`)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/optimize", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", tenant)
	req.Header.Set("X-Role", "dispatcher")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	var out struct {
		RouteID string `json:"routeId"`
		Route   struct {
			StrategyUsed string `json:"strategyUsed"`
		} `json:"route"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	_ = resp.Body.Close()
	log.Printf("optimize %s: route %s via %s", resp.Status, out.RouteID, out.Route.StrategyUsed)

	select {
	case <-time.After(3 * time.Second):
	case <-done:
	}
}
