package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"rangeann/pkg/client"
)

const Prompt = "rangeann> "

func main() {
	serverAddr := flag.String("addr", "localhost:9090", "RangeANN TCP Server Address")
	flag.Parse()

	fmt.Printf("RangeANN CLI (Target: %s)\n", *serverAddr)
	fmt.Println("Connecting...")

	cli, err := client.Dial(*serverAddr)
	if err != nil {
		fmt.Printf("Connection failed: %v\n", err)
		fmt.Println("Tip: Ensure the server is running (e.g. go run cmd/server/main.go).")
		return
	}
	defer cli.Close()
	fmt.Println("Connected! Type 'help' for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(Prompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "insert", "add":
			handleInsert(cli, parts)
		case "query", "q":
			handleQuery(cli, parts)
		case "stats":
			handleStats(cli)
		case "help":
			printHelp()
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Printf("Unknown command: '%s'. Type 'help'.\n", cmd)
		}
	}
}

// parseVector reads a comma-separated float list like "0.1,0.2,0.3".
func parseVector(s string) ([]float32, error) {
	fields := strings.Split(s, ",")
	vec := make([]float32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
		if err != nil {
			return nil, fmt.Errorf("bad component %q", f)
		}
		vec = append(vec, float32(v))
	}
	return vec, nil
}

func handleInsert(cli *client.Client, parts []string) {
	if len(parts) < 3 {
		fmt.Println("Usage: insert <v1,v2,...> <tag>")
		return
	}

	vec, err := parseVector(parts[1])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	tag, err := strconv.ParseFloat(parts[2], 32)
	if err != nil {
		fmt.Println("Error: tag must be a number")
		return
	}

	start := time.Now()
	id, err := cli.Insert(vec, float32(tag))
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
	} else {
		fmt.Printf("OK id=%d (%v)\n", id, duration)
	}
}

func handleQuery(cli *client.Client, parts []string) {
	if len(parts) < 5 {
		fmt.Println("Usage: query <v1,v2,...> <k> <smin> <smax> [alpha]")
		return
	}

	vec, err := parseVector(parts[1])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	k, err := strconv.Atoi(parts[2])
	if err != nil {
		fmt.Println("Error: k must be an integer")
		return
	}
	smin, err1 := strconv.ParseFloat(parts[3], 32)
	smax, err2 := strconv.ParseFloat(parts[4], 32)
	if err1 != nil || err2 != nil {
		fmt.Println("Error: smin and smax must be numbers")
		return
	}
	alpha := 0.0 // server default
	if len(parts) > 5 {
		alpha, err = strconv.ParseFloat(parts[5], 64)
		if err != nil {
			fmt.Println("Error: alpha must be a number")
			return
		}
	}

	start := time.Now()
	ids, err := cli.Query(vec, k, float32(smin), float32(smax), alpha)
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Found %d neighbors (%v):\n", len(ids), duration)
	for i, id := range ids {
		if i >= 20 {
			fmt.Printf("... and %d more\n", len(ids)-20)
			break
		}
		fmt.Printf("  #%d -> id %d\n", i+1, id)
	}
}

func handleStats(cli *client.Client) {
	stats, err := cli.Stats()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	data, _ := json.MarshalIndent(stats, "", "  ")
	fmt.Println(string(data))
}

func printHelp() {
	fmt.Println(`
Commands:
  insert <v1,v2,...> <tag>                 Insert a vector with a scalar tag
  query <v1,v2,...> <k> <smin> <smax> [a]  k nearest with tag in [smin, smax]
  stats                                    Server statistics
  exit                                     Exit CLI
	`)
}
