package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"seald/internal/infra/fingerprint"
)

func runSeal(args []string) int {
	fs := flag.NewFlagSet("seal", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var server, in, contentType, actor string
	fs.StringVar(&server, "server", "http://localhost:8080", "seald server url")
	fs.StringVar(&in, "in", "", "file to seal")
	fs.StringVar(&contentType, "content-type", "", "payload content type")
	fs.StringVar(&actor, "actor", "", "acting identity")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if in == "" {
		fmt.Fprintln(os.Stderr, "seal requires --in")
		return 1
	}
	payload, err := os.ReadFile(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", in, err)
		return 1
	}
	body := map[string]string{
		"payload_base64": base64.StdEncoding.EncodeToString(payload),
	}
	if contentType != "" {
		body["content_type"] = contentType
	}
	if actor != "" {
		body["actor"] = actor
	}
	return postJSON(server+"/v1/artifacts", body)
}

func runVerify(args []string) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var server, id, in string
	fs.StringVar(&server, "server", "http://localhost:8080", "seald server url")
	fs.StringVar(&id, "id", "", "artifact id")
	fs.StringVar(&in, "in", "", "optional file to verify against the seal")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if id == "" {
		fmt.Fprintln(os.Stderr, "verify requires --id")
		return 1
	}
	body := map[string]string{}
	if in != "" {
		payload, err := os.ReadFile(in)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read %s: %v\n", in, err)
			return 1
		}
		body["payload_base64"] = base64.StdEncoding.EncodeToString(payload)
	}
	return postJSON(server+"/v1/artifacts/"+id+"/verify", body)
}

func runProof(args []string) int {
	fs := flag.NewFlagSet("proof", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var server, id string
	fs.StringVar(&server, "server", "http://localhost:8080", "seald server url")
	fs.StringVar(&id, "id", "", "artifact id")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if id == "" {
		fmt.Fprintln(os.Stderr, "proof requires --id")
		return 1
	}
	return doRequest(http.MethodGet, server+"/v1/artifacts/"+id+"/proof", nil)
}

func runDelete(args []string) int {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var server, id, reason, actor string
	fs.StringVar(&server, "server", "http://localhost:8080", "seald server url")
	fs.StringVar(&id, "id", "", "artifact id")
	fs.StringVar(&reason, "reason", "", "deletion reason")
	fs.StringVar(&actor, "actor", "", "acting identity")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if id == "" {
		fmt.Fprintln(os.Stderr, "delete requires --id")
		return 1
	}
	body := map[string]string{}
	if reason != "" {
		body["reason"] = reason
	}
	if actor != "" {
		body["actor"] = actor
	}
	return doRequest(http.MethodDelete, server+"/v1/artifacts/"+id, body)
}

func runFingerprint(args []string) int {
	fs := flag.NewFlagSet("fingerprint", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var in string
	fs.StringVar(&in, "in", "", "file to fingerprint")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if in == "" {
		fmt.Fprintln(os.Stderr, "fingerprint requires --in")
		return 1
	}
	payload, err := os.ReadFile(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", in, err)
		return 1
	}
	sum, err := fingerprint.Sum(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fingerprint: %v\n", err)
		return 1
	}
	fmt.Println(fingerprint.Alg + ":" + sum)
	return 0
}

func postJSON(url string, body any) int {
	return doRequest(http.MethodPost, url, body)
}

func doRequest(method, url string, body any) int {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			fmt.Fprintf(os.Stderr, "encode request: %v\n", err)
			return 1
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build request: %v\n", err)
		return 1
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
		return 1
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read response: %v\n", err)
		return 1
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, payload, "", "  "); err != nil {
		fmt.Println(strings.TrimSpace(string(payload)))
	} else {
		fmt.Println(pretty.String())
	}
	if resp.StatusCode >= 400 {
		return 1
	}
	return 0
}
