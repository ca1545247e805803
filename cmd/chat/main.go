// Command chat is a small console client for the gateway. It supports two
// modes: send the contents of a prompt file as a single turn, or hold an
// interactive conversation on one session.
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sebsoto/mcp/internal/protocol"
)

func main() {
	log.SetFlags(0)

	server := flag.String("s", "", "gateway base URL, e.g. http://localhost:8080 (required)")
	sessionKey := flag.String("k", "", "session key (defaults to a fresh random key)")
	promptFile := flag.String("f", "", "file whose contents are sent as a single turn")
	converse := flag.Bool("c", false, "interactive conversation mode")
	showTrace := flag.Bool("t", false, "print the tool trace of each turn")
	flag.Parse()

	if *server == "" {
		log.Fatal("error: -s <server> is required")
	}
	if (*promptFile == "") == !*converse {
		log.Fatal("error: exactly one of -f <file> or -c must be given")
	}
	if *sessionKey == "" {
		*sessionKey = uuid.NewString()
	}

	client := &chatClient{
		baseURL:    strings.TrimRight(*server, "/"),
		sessionKey: *sessionKey,
		showTrace:  *showTrace,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}

	if *promptFile != "" {
		content, err := os.ReadFile(*promptFile)
		if err != nil {
			log.Fatalf("error: failed to read prompt file: %v", err)
		}
		if err := client.sendTurn(strings.TrimSpace(string(content))); err != nil {
			log.Fatalf("error: %v", err)
		}
		return
	}

	client.converse()
}

type chatClient struct {
	baseURL    string
	sessionKey string
	showTrace  bool
	httpClient *http.Client
}

// converse runs the interactive prompt loop until EOF or a quit command.
func (c *chatClient) converse() {
	fmt.Printf("Connected to %s (session %s). Type 'quit' or 'exit' to leave.\n", c.baseURL, c.sessionKey)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := c.sendTurn(line); err != nil {
			log.Printf("error: %v", err)
		}
	}
	fmt.Println("Goodbye.")
}

// sendTurn submits one user message and prints the assistant's reply.
func (c *chatClient) sendTurn(text string) error {
	payload, err := protocol.EncodeRequest(&protocol.ChatRequest{
		SessionKey: c.sessionKey,
		Text:       text,
	})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.httpClient.Post(c.baseURL+"/api/v1/chat", "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	chatResp, err := protocol.DecodeResponse(body)
	if err != nil {
		return fmt.Errorf("malformed response (status %d): %w", resp.StatusCode, err)
	}

	if chatResp.Error != nil {
		return fmt.Errorf("gateway error (%s): %s", chatResp.Error.Kind, chatResp.Error.Message)
	}

	if c.showTrace {
		for _, entry := range chatResp.ToolTrace {
			fmt.Printf("[tool %s %s] %s\n", entry.ToolName, entry.Status, entry.Detail)
		}
	}
	fmt.Println(chatResp.AssistantText)
	return nil
}
