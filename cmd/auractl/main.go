package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var client = &http.Client{Timeout: 90 * time.Second}

func main() {
	server := flag.String("server", "http://localhost:8080", "AuraOS server URL")
	flag.Parse()

	fmt.Println("AuraOS control shell")
	fmt.Printf("Server: %s\n", *server)
	fmt.Println("Type 'exit' or 'quit' to leave, /help for commands.")
	fmt.Println("---")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Bye!")
			return
		}
		run(*server, input)
	}
}

func run(server, input string) {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/help":
		fmt.Println(`Commands:
  /health
  /agents
  /new <name> <archetype> <tool,tool> <description...>
  /assign <agentId> <taskType> <description...>
  /task <taskId>
  /collab <mode> <agentId,agentId> <description...>
  /collabs
  /send <from> <to> <text...>
  /history <from> <to>
  /report [agentId]`)
	case "/health":
		get(server, "/api/health")
	case "/agents":
		listAgents(server)
	case "/new":
		if len(fields) < 5 {
			printError("usage: /new <name> <archetype> <tool,tool> <description...>")
			return
		}
		post(server, "/api/agents", map[string]any{
			"name":        fields[1],
			"archetype":   fields[2],
			"tools":       strings.Split(fields[3], ","),
			"description": strings.Join(fields[4:], " "),
		})
	case "/assign":
		if len(fields) < 4 {
			printError("usage: /assign <agentId> <taskType> <description...>")
			return
		}
		var t struct {
			ID string `json:"id"`
		}
		if !postInto(server, "/api/agents/"+fields[1]+"/tasks", map[string]any{
			"type":        fields[2],
			"description": strings.Join(fields[3:], " "),
		}, &t) {
			return
		}
		fmt.Printf("Task %s accepted, waiting...\n", t.ID)
		get(server, "/api/tasks/"+t.ID+"/wait?timeout=60s")
	case "/task":
		if len(fields) < 2 {
			printError("usage: /task <taskId>")
			return
		}
		get(server, "/api/tasks/"+fields[1])
	case "/collab":
		if len(fields) < 4 {
			printError("usage: /collab <mode> <agentId,agentId> <description...>")
			return
		}
		var c struct {
			ID string `json:"id"`
		}
		if !postInto(server, "/api/collaborations", map[string]any{
			"mode":             fields[1],
			"agent_ids":        strings.Split(fields[2], ","),
			"task_description": strings.Join(fields[3:], " "),
		}, &c) {
			return
		}
		fmt.Printf("Collaboration %s started, waiting...\n", c.ID)
		get(server, "/api/collaborations/"+c.ID+"/wait?timeout=60s")
	case "/collabs":
		get(server, "/api/collaborations")
	case "/send":
		if len(fields) < 4 {
			printError("usage: /send <from> <to> <text...>")
			return
		}
		post(server, "/api/messages", map[string]any{
			"from":    fields[1],
			"to":      fields[2],
			"payload": strings.Join(fields[3:], " "),
		})
	case "/history":
		if len(fields) < 3 {
			printError("usage: /history <from> <to>")
			return
		}
		get(server, "/api/messages?from="+fields[1]+"&to="+fields[2])
	case "/report":
		if len(fields) > 1 {
			get(server, "/api/agents/"+fields[1]+"/analytics")
			return
		}
		get(server, "/api/analytics")
	default:
		printError("unknown command %q, try /help", fields[0])
	}
}

type agentPerformance struct {
	TasksCompleted int     `json:"tasks_completed"`
	SuccessRate    float64 `json:"success_rate"`
}

func listAgents(server string) {
	resp, err := client.Get(server + "/api/agents")
	if err != nil {
		printError("Failed to fetch agents: %v", err)
		return
	}
	defer resp.Body.Close()

	var agents []struct {
		ID          string           `json:"id"`
		Name        string           `json:"name"`
		Archetype   string           `json:"archetype"`
		Status      string           `json:"status"`
		Performance agentPerformance `json:"performance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&agents); err != nil {
		printError("Failed to parse agents: %v", err)
		return
	}
	if len(agents) == 0 {
		fmt.Println("No agents registered yet.")
		return
	}
	fmt.Println("Agents:")
	for _, a := range agents {
		fmt.Printf("  %s  %-16s %-12s %-8s tasks=%d success=%.2f\n",
			a.ID, a.Name, a.Archetype, a.Status, a.Performance.TasksCompleted, a.Performance.SuccessRate)
	}
}

func get(server, path string) {
	resp, err := client.Get(server + path)
	if err != nil {
		printError("Request failed: %v", err)
		return
	}
	printBody(resp)
}

func post(server, path string, body any) {
	resp, ok := doPost(server, path, body)
	if ok {
		printBody(resp)
	}
}

func postInto(server, path string, body, into any) bool {
	resp, ok := doPost(server, path, body)
	if !ok {
		return false
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		printError("Server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
		return false
	}
	if err := json.Unmarshal(data, into); err != nil {
		printError("Failed to parse response: %v", err)
		return false
	}
	return true
}

func doPost(server, path string, body any) (*http.Response, bool) {
	data, _ := json.Marshal(body)
	resp, err := client.Post(server+path, "application/json", bytes.NewReader(data))
	if err != nil {
		printError("Request failed: %v", err)
		return nil, false
	}
	return resp, true
}

func printBody(resp *http.Response) {
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		printError("Server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
		return
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, data, "", "  ") == nil {
		fmt.Println(pretty.String())
		return
	}
	fmt.Println(string(data))
}

func printError(format string, args ...interface{}) {
	fmt.Printf("\033[31m%s\033[0m\n", fmt.Sprintf(format, args...))
}
