package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "queue":
		queueCmd(apiURL, args)
	case "room":
		roomCmd(apiURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Queue Simulator - Development tool for exercising matchmaking and rooms

USAGE:
  simulator <command> [options]

COMMANDS:
  queue     Enqueue N fake users and report the rooms that form
  room      Create a practice room, start it, leave all users, fetch scores
  help      Show this help message

ENVIRONMENT:
  API_URL   Backend API URL (default: http://localhost:8080)

EXAMPLES:
  # Enqueue 3 users so a full group forms
  simulator queue --count=3

  # Enqueue 2 users and leave one waiting
  simulator queue --count=2

  # Run a full practice room lifecycle with 3 participants
  simulator room --count=3 --topic="remote work"`)
}

type queueStatus struct {
	State    string `json:"state"`
	Position int    `json:"position"`
	Room     *struct {
		ID    string `json:"id"`
		Topic string `json:"topic"`
	} `json:"room"`
}

type roomResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func queueCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("queue", flag.ExitOnError)
	count := fs.Int("count", 3, "Number of fake users to enqueue")
	fs.Parse(args)

	fmt.Printf("=== Queue Simulator: enqueuing %d users ===\n\n", *count)

	for i := 0; i < *count; i++ {
		userID := uuid.New()
		name := fmt.Sprintf("SimUser%02d", i+1)

		var status queueStatus
		err := post(apiURL+"/api/v1/queue/join", map[string]string{
			"userId": userID.String(),
			"name":   name,
		}, &status)
		if err != nil {
			fmt.Printf("%s: FAILED (%v)\n", name, err)
			os.Exit(1)
		}

		switch status.State {
		case "matched":
			fmt.Printf("%s: matched into room %s (topic: %s)\n", name, status.Room.ID, status.Room.Topic)
		case "waiting":
			fmt.Printf("%s: waiting at position %d\n", name, status.Position)
		default:
			fmt.Printf("%s: %s\n", name, status.State)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func roomCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("room", flag.ExitOnError)
	count := fs.Int("count", 3, "Number of participants")
	topic := fs.String("topic", "remote work", "Discussion topic")
	fs.Parse(args)

	fmt.Println("=== Room Simulator: full lifecycle ===")
	fmt.Println()

	participants := make([]map[string]string, *count)
	userIDs := make([]string, *count)
	for i := range participants {
		userIDs[i] = uuid.NewString()
		participants[i] = map[string]string{
			"userId": userIDs[i],
			"name":   fmt.Sprintf("SimUser%02d", i+1),
		}
	}

	var room roomResponse
	err := post(apiURL+"/api/v1/rooms/", map[string]interface{}{
		"mode":            "practice",
		"topic":           *topic,
		"durationSeconds": 120,
		"participants":    participants,
	}, &room)
	if err != nil {
		fmt.Printf("Failed to create room: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Room created: %s\n", room.ID)

	if err := post(apiURL+"/api/v1/rooms/"+room.ID+"/start", nil, &room); err != nil {
		fmt.Printf("Failed to start room: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Room started: status=%s\n", room.Status)
	fmt.Println("Stream audio via ws now, or continue to leave everyone.")

	for i, userID := range userIDs {
		if err := post(apiURL+"/api/v1/rooms/"+room.ID+"/leave", map[string]string{"userId": userID}, &room); err != nil {
			fmt.Printf("Leave failed for user %d: %v\n", i+1, err)
			os.Exit(1)
		}
	}
	fmt.Printf("All users left: status=%s\n", room.Status)

	var scores json.RawMessage
	if err := get(apiURL+"/api/v1/rooms/"+room.ID+"/scores", &scores); err != nil {
		fmt.Printf("No scores available: %v\n", err)
		return
	}
	fmt.Printf("Scores:\n%s\n", string(scores))
}

func post(url string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader([]byte("{}"))
	}

	resp, err := http.Post(url, "application/json", reader)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(msg))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func get(url string, out interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(msg))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
