package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"sion-backend/models"
)

type envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func main() {
	var (
		url   = flag.String("url", "ws://localhost:3000/websocket/web", "live feed url")
		simID = flag.String("sim", "", "only show this simulation")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg envelope
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case models.MessageTypeTick:
			var res models.TickResult
			if err := json.Unmarshal(msg.Data, &res); err != nil {
				continue
			}
			if *simID != "" && res.SimulationID != *simID {
				continue
			}
			printTick(logger, res)

		case models.MessageTypePhaseChange, models.MessageTypeSimEvent:
			var ev models.SimEventData
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				continue
			}
			if *simID != "" && ev.SimulationID != *simID {
				continue
			}
			logger.Printf("EVENT %s sim=%s tick=%d phase=%s %s", ev.Event, short(ev.SimulationID), ev.Tick, ev.Phase, ev.Detail)

		case models.MessageTypeSystemInfo:
			logger.Printf("INFO %s", msg.Data)
		}
	}
}

func printTick(logger *log.Logger, res models.TickResult) {
	labels := make([]string, 0, len(res.Actions))
	for _, rec := range res.Actions {
		labels = append(labels, rec.Label())
	}
	line := strings.Join(labels, " ")
	if res.Phase != "" {
		logger.Printf("TICK sim=%s #%d [%s] %s", short(res.SimulationID), res.Tick, res.Phase, line)
	} else {
		logger.Printf("TICK sim=%s #%d %s", short(res.SimulationID), res.Tick, line)
	}
	for _, s := range res.Skipped {
		logger.Printf("  skip agent=%d %s: %s", s.AgentID, s.Code, s.Error)
	}
	if res.RolledBack {
		logger.Printf("  rolled back")
	}
	if res.Done {
		logger.Printf("  done")
	}
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
