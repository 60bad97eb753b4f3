package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Exercises the full API flow against a running instance: register a college,
// create a branch with rooms, a subject, a qualified teacher, then generate
// and fetch the timetable. Exits non-zero on the first failing step.

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type client struct {
	base  string
	http  *http.Client
	token string
}

func main() {
	var (
		base    string
		timeout time.Duration
	)
	flag.StringVar(&base, "base", "http://localhost:8080/api", "API base URL")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	c := &client{base: base, http: &http.Client{Timeout: timeout}}
	suffix := time.Now().UnixNano()

	var auth struct {
		AccessToken string `json:"access_token"`
	}
	register := map[string]interface{}{
		"name":      "Smoke Test College",
		"collegeId": fmt.Sprintf("SMOKE-%d", suffix),
		"email":     fmt.Sprintf("smoke-%d@example.edu", suffix),
		"password":  "smoke-password",
	}
	if err := c.call(http.MethodPost, "/auth/register", register, &auth); err != nil {
		log.Fatalf("register: %v", err)
	}
	c.token = auth.AccessToken
	log.Println("registered college")

	var branch struct {
		ID string `json:"id"`
	}
	branchReq := map[string]interface{}{
		"name":             "Computer Science",
		"code":             "CSE",
		"periodsPerDay":    8,
		"lunchStartPeriod": 5,
		"lunchEndPeriod":   5,
		"classrooms": []map[string]interface{}{
			{"name": "CR-101", "capacity": 60, "type": "Classroom"},
			{"name": "LAB-1", "capacity": 30, "type": "Lab"},
		},
	}
	if err := c.call(http.MethodPost, "/branches", branchReq, &branch); err != nil {
		log.Fatalf("create branch: %v", err)
	}
	log.Printf("created branch %s", branch.ID)

	var subject struct {
		ID string `json:"id"`
	}
	subjectReq := map[string]interface{}{
		"branchId": branch.ID,
		"name":     "Data Structures",
		"code":     "CS201",
		"credits":  3,
		"type":     "Theory",
		"semester": 3,
	}
	if err := c.call(http.MethodPost, "/subjects", subjectReq, &subject); err != nil {
		log.Fatalf("create subject: %v", err)
	}
	log.Printf("created subject %s", subject.ID)

	periods := []int{1, 2, 3, 4, 6, 7, 8}
	slots := make([]map[string]interface{}, 0, 6)
	for _, day := range []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"} {
		slots = append(slots, map[string]interface{}{"day": day, "periods": periods})
	}
	teacherReq := map[string]interface{}{
		"branchId":       branch.ID,
		"name":           "Prof. Smoke",
		"email":          fmt.Sprintf("prof-%d@example.edu", suffix),
		"phone":          "0000000000",
		"employeeId":     fmt.Sprintf("EMP-%d", suffix),
		"subjects":       []string{subject.ID},
		"availableSlots": slots,
	}
	var teacher struct {
		ID string `json:"id"`
	}
	if err := c.call(http.MethodPost, "/teachers", teacherReq, &teacher); err != nil {
		log.Fatalf("create teacher: %v", err)
	}
	log.Printf("created teacher %s", teacher.ID)

	generateReq := map[string]interface{}{
		"branchId": branch.ID,
		"semester": 3,
		"subjects": []string{subject.ID},
	}
	var generated struct {
		Timetable struct {
			ID       string `json:"id"`
			Schedule []struct {
				Day     string `json:"day"`
				Periods []struct {
					Period  int  `json:"period"`
					IsBreak bool `json:"is_break"`
				} `json:"periods"`
			} `json:"schedule"`
		} `json:"timetable"`
		Unmet []struct {
			SubjectID string `json:"subject_id"`
			Remaining int    `json:"remaining"`
		} `json:"unmet_demand"`
	}
	if err := c.call(http.MethodPost, "/timetables/generate", generateReq, &generated); err != nil {
		log.Fatalf("generate timetable: %v", err)
	}
	if len(generated.Timetable.Schedule) != 6 {
		log.Fatalf("expected 6 days, got %d", len(generated.Timetable.Schedule))
	}
	if len(generated.Unmet) > 0 {
		log.Printf("warning: unmet demand reported: %+v", generated.Unmet)
	}
	log.Printf("generated timetable %s", generated.Timetable.ID)

	path := fmt.Sprintf("/timetables/branch/%s/semester/3", branch.ID)
	var view json.RawMessage
	if err := c.call(http.MethodGet, path, nil, &view); err != nil {
		log.Fatalf("fetch timetable: %v", err)
	}
	log.Println("fetched timetable by branch semester")

	fmt.Println("smoke test passed")
}

func (c *client) call(method, path string, body interface{}, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s %s: status %d, unreadable body", method, path, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		if env.Error != nil {
			return fmt.Errorf("%s %s: %s (%s)", method, path, env.Error.Message, env.Error.Code)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if dest != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}
