package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

var baseURL = "http://localhost:8080"

func main() {
	if v := os.Getenv("ORTHOPHENO_URL"); v != "" {
		baseURL = v
	}

	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting Integration Test...")

	fmt.Println("1. Health check...")
	if !sendRequest("GET", "/healthz", nil) {
		fmt.Println("FAILED: Health check")
		os.Exit(1)
	}
	fmt.Println("PASSED: Health check")

	genes := []string{"HGNC:11025", "HGNC:6407"}

	fmt.Println("2. Ortho-pheno expansion...")
	if !sendRequest("POST", "/expand", map[string]interface{}{"genes": genes[:1], "mode": "orthopheno"}) {
		fmt.Println("FAILED: Expand")
		os.Exit(1)
	}
	fmt.Println("PASSED: Expand")

	fmt.Println("3. Connections...")
	if !sendRequest("POST", "/connections", map[string]interface{}{"nodes": genes}) {
		fmt.Println("FAILED: Connections")
		os.Exit(1)
	}
	fmt.Println("PASSED: Connections")

	fmt.Println("4. Hypothesis query...")
	payload := map[string]interface{}{
		"genes": genes,
		"name":  fmt.Sprintf("smoke_%d", time.Now().Unix()),
	}
	if !sendRequest("POST", "/hypothesis", payload) {
		fmt.Println("FAILED: Hypothesis")
		os.Exit(1)
	}
	fmt.Println("PASSED: Hypothesis")
}

func sendRequest(method, endpoint string, payload interface{}) bool {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, body)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		return false
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Request failed with status %d: %s\n", resp.StatusCode, string(respBody))
		return false
	}

	if len(respBody) > 512 {
		respBody = append(respBody[:512], "..."...)
	}
	fmt.Printf("Response: %s\n", string(respBody))

	return true
}
