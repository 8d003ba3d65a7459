package main

import (
	"fmt"
	"log"
	"time"

	"rangeann/pkg/client"
)

func main() {
	fmt.Println("Connecting to RangeANN...")
	cli, err := client.Dial("localhost:9090")
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer cli.Close()

	vec := []float32{0.1, 0.2, 0.3, 0.4}
	tag := float32(42)

	fmt.Printf("Inserting: Vec=%v, Tag=%g\n", vec, tag)
	start := time.Now()
	id, err := cli.Insert(vec, tag)
	if err != nil {
		log.Fatalf("Insert failed: %v", err)
	}
	fmt.Printf("Insert done, id=%d (in %v)\n", id, time.Since(start))

	fmt.Println("Querying 5 nearest with tag in [40, 50]...")
	start = time.Now()
	ids, err := cli.Query(vec, 5, 40, 50, 0.01)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	fmt.Printf("Got %d ids: %v (in %v)\n", len(ids), ids, time.Since(start))
}
