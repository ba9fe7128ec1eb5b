package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

var baseURL = "http://localhost:3000/api"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Pretty print JSON helper
func prettyPrint(raw []byte) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		fmt.Println(string(raw))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url string, body interface{}) (*http.Response, *envelope, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	// Report generation on a local model can take minutes.
	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, nil, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return resp, nil, fmt.Errorf("decode %s: %w", string(raw), err)
	}
	return resp, &env, nil
}

func must(step string, resp *http.Response, env *envelope, err error, wantStatus int) *envelope {
	if err != nil {
		color.Red("%s failed: %v", step, err)
		os.Exit(1)
	}
	if resp.StatusCode != wantStatus {
		color.Red("%s: expected %d, got %s (%s)", step, wantStatus, resp.Status, env.Error)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	return env
}

var answers = []string{
	"We built an AI system that screens job applicants' CVs and ranks them for recruiters at large employers in the EU.",
	"It is used by HR departments to shortlist candidates before interviews; final decisions are made by recruiters.",
	"It processes CVs, employment history and education records. No biometric data is collected.",
	"Recruiters review every shortlist and can override the ranking. Candidates are told an automated tool is used.",
	"It is deployed in Germany, France and the Netherlands and affects tens of thousands of applicants per year.",
	"We are the provider; several employers deploy it. The model is a fine-tuned transformer from our own team.",
}

func main() {
	if v := os.Getenv("ADVISOR_API_URL"); v != "" {
		baseURL = v
	}
	color.Cyan("Starting AI Act advisor API smoke test against %s\n", baseURL)

	// 1. Health
	color.Yellow("\n1. Health check")
	resp, env, err := sendRequest("GET", "/health", nil)
	prettyPrint(must("health", resp, env, err, http.StatusOK).Data)

	// 2. Create session
	color.Yellow("\n2. Create session")
	resp, env, err = sendRequest("POST", "/advisor/v1/session", nil)
	env = must("create session", resp, env, err, http.StatusCreated)
	var created struct {
		SessionID     string `json:"session_id"`
		InitialPrompt string `json:"initial_prompt"`
	}
	_ = json.Unmarshal(env.Data, &created)
	fmt.Println(created.InitialPrompt)

	// 3. Validation error
	color.Yellow("\n3. Chat without content (expect 400)")
	resp, env, err = sendRequest("POST", "/advisor/v1/chat", map[string]string{"session_id": created.SessionID})
	must("validation", resp, env, err, http.StatusBadRequest)

	// 4. Interview until the report arrives
	color.Yellow("\n4. Interview")
	done := false
	for i := 0; !done; i++ {
		answer := "No further details beyond what I already described."
		if i < len(answers) {
			answer = answers[i]
		}
		color.White("you> %s", answer)

		resp, env, err = sendRequest("POST", "/advisor/v1/chat", map[string]string{
			"session_id": created.SessionID,
			"content":    answer,
		})
		env = must(fmt.Sprintf("turn %d", i+1), resp, env, err, http.StatusOK)

		var turn struct {
			Message string `json:"message"`
			IsDone  bool   `json:"is_done"`
		}
		_ = json.Unmarshal(env.Data, &turn)
		color.Cyan("advisor> %s", turn.Message)
		done = turn.IsDone
	}

	// 5. Finished sessions reject further turns
	color.Yellow("\n5. Chat after report (expect 409)")
	resp, env, err = sendRequest("POST", "/advisor/v1/chat", map[string]string{
		"session_id": created.SessionID,
		"content":    "one more thing",
	})
	must("after done", resp, env, err, http.StatusConflict)

	// 6. Session snapshot
	color.Yellow("\n6. Get session")
	resp, env, err = sendRequest("GET", "/advisor/v1/session/"+created.SessionID, nil)
	prettyPrint(must("get session", resp, env, err, http.StatusOK).Data)

	// 7. Reset and delete
	color.Yellow("\n7. Reset then delete")
	resp, env, err = sendRequest("POST", "/advisor/v1/session/"+created.SessionID+"/reset", nil)
	must("reset", resp, env, err, http.StatusOK)
	resp, env, err = sendRequest("DELETE", "/advisor/v1/session/"+created.SessionID, nil)
	must("delete", resp, env, err, http.StatusOK)
	resp, env, err = sendRequest("GET", "/advisor/v1/session/"+created.SessionID, nil)
	must("get deleted", resp, env, err, http.StatusNotFound)

	color.Green("\nAll checks passed")
}
