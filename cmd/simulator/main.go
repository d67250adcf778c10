package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

var (
	firstNames = []string{"Andrei", "Maria", "Ion", "Elena", "Mihai", "Ioana", "Radu", "Ana"}
	lastNames  = []string{"Popescu", "Ionescu", "Dumitru", "Stan", "Georgescu", "Matei"}
	counties   = []string{"B", "CJ", "IS", "TM", "BV", "CT", "PH", "AG"}
	makes      = map[string][]string{
		"Dacia":      {"Logan", "Sandero", "Duster"},
		"Volkswagen": {"Golf", "Passat", "Tiguan"},
		"Skoda":      {"Octavia", "Fabia"},
		"Ford":       {"Focus", "Transit"},
	}
)

// apiError is the error envelope returned by the scheduling API.
type apiError struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

type stats struct {
	accepted atomic.Int64
	rejected atomic.Int64
	failed   atomic.Int64
}

func postJSON(apiURL, path string, body, out interface{}) (int, []byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, apiURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", "simulator")
	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return resp.StatusCode, nil, err
	}
	if out != nil && resp.StatusCode < 300 {
		if err := json.Unmarshal(buf.Bytes(), out); err != nil {
			return resp.StatusCode, buf.Bytes(), fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, buf.Bytes(), nil
}

func createEntity(apiURL, path string, body interface{}) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	status, _, err := postJSON(apiURL, path, body, &created)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if status != http.StatusCreated {
		return "", fmt.Errorf("%s creation failed with status: %d", path, status)
	}
	if created.ID == "" {
		return "", fmt.Errorf("invalid ID in %s response", path)
	}
	return created.ID, nil
}

func randomPlate() string {
	letters := make([]byte, 3)
	for i := range letters {
		letters[i] = byte('A' + rand.Intn(26))
	}
	return fmt.Sprintf("%s %02d %s", counties[rand.Intn(len(counties))], 1+rand.Intn(99), letters)
}

func randomVehicle(clientID string) map[string]interface{} {
	brands := make([]string, 0, len(makes))
	for m := range makes {
		brands = append(brands, m)
	}
	brand := brands[rand.Intn(len(brands))]
	return map[string]interface{}{
		"client_id":     clientID,
		"license_plate": randomPlate(),
		"make":          brand,
		"model":         makes[brand][rand.Intn(len(makes[brand]))],
		"year":          2005 + rand.Intn(20),
		"type":          "car",
		"fuel_type":     []string{"petrol", "diesel", "hybrid", "lpg"}[rand.Intn(4)],
	}
}

// workingDays returns the next n days from start, skipping Sundays.
func workingDays(start time.Time, n int) []time.Time {
	days := make([]time.Time, 0, n)
	for d := start; len(days) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Sunday {
			days = append(days, d)
		}
	}
	return days
}

func fetchSlots(apiURL, stationID string, day time.Time) ([]string, error) {
	u := fmt.Sprintf("%s/stations/%s/slots?date=%s", apiURL, url.PathEscape(stationID), day.Format("2006-01-02"))
	resp, err := httpClient.Get(u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("slots query failed with status: %d", resp.StatusCode)
	}
	var body struct {
		Slots []string `json:"slots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}
	return body.Slots, nil
}

// bookRandomSlot books one of the free slots of day. Another worker may take the slot
// between the query and the booking; the API then answers 422.
func bookRandomSlot(apiURL, stationID, clientID, vehicleID string, day time.Time, st *stats) {
	slots, err := fetchSlots(apiURL, stationID, day)
	if err != nil {
		st.failed.Add(1)
		log.WithError(err).Error("Failed to fetch slots")
		return
	}
	if len(slots) == 0 {
		log.WithField("date", day.Format("2006-01-02")).Info("Day fully booked")
		return
	}
	slot := slots[rand.Intn(len(slots))]
	req := map[string]interface{}{
		"vehicle_id":    vehicleID,
		"client_id":     clientID,
		"date":          day.Format("2006-01-02"),
		"time":          slot,
		"period_months": []int{6, 12, 24}[rand.Intn(3)],
	}
	status, raw, err := postJSON(apiURL, "/stations/"+url.PathEscape(stationID)+"/inspections", req, nil)
	fields := log.Fields{"vehicle_id": vehicleID, "date": day.Format("2006-01-02"), "time": slot, "status": status}
	switch {
	case err != nil:
		st.failed.Add(1)
		log.WithError(err).WithFields(fields).Error("Booking request failed")
	case status == http.StatusCreated:
		st.accepted.Add(1)
		log.WithFields(fields).Info("Booking accepted")
	case status == http.StatusUnprocessableEntity:
		st.rejected.Add(1)
		var e apiError
		_ = json.Unmarshal(raw, &e)
		log.WithFields(fields).WithField("kind", e.Error.Kind).Info("Booking rejected")
	default:
		st.failed.Add(1)
		log.WithFields(fields).Warn("Unexpected booking response")
	}
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func run(apiURL string, vehicles, workers, days int, start time.Time) (*stats, error) {
	stationID, err := createEntity(apiURL, "/stations", map[string]interface{}{
		"name": fmt.Sprintf("ITP Simulator %d", rand.Intn(1000)),
		"code": fmt.Sprintf("SIM%03d", rand.Intn(1000)),
	})
	if err != nil {
		return nil, err
	}
	clientID, err := createEntity(apiURL, "/clients", map[string]interface{}{
		"type":       "individual",
		"first_name": firstNames[rand.Intn(len(firstNames))],
		"last_name":  lastNames[rand.Intn(len(lastNames))],
		"phone":      fmt.Sprintf("07%08d", rand.Intn(100000000)),
	})
	if err != nil {
		return nil, err
	}

	vehicleIDs := make([]string, 0, vehicles)
	for i := 0; i < vehicles; i++ {
		id, err := createEntity(apiURL, "/vehicles", randomVehicle(clientID))
		if err != nil {
			log.WithError(err).Error("Failed to create vehicle")
			continue
		}
		vehicleIDs = append(vehicleIDs, id)
	}
	log.WithFields(log.Fields{"station_id": stationID, "created_vehicles": len(vehicleIDs)}).Info("Setup completed")
	if len(vehicleIDs) == 0 {
		return nil, fmt.Errorf("no vehicles created")
	}

	calendar := workingDays(start, days)
	st := &stats{}
	jobs := make(chan string)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for vehicleID := range jobs {
				bookRandomSlot(apiURL, stationID, clientID, vehicleID, calendar[rand.Intn(len(calendar))], st)
			}
		}()
	}
	for _, id := range vehicleIDs {
		jobs <- id
	}
	close(jobs)
	wg.Wait()
	return st, nil
}

func main() {
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}
	vehicles := envInt("SIM_VEHICLES", 20)
	workers := envInt("SIM_WORKERS", 4)
	days := envInt("SIM_DAYS", 3)

	log.WithFields(log.Fields{
		"api_url":  apiURL,
		"vehicles": vehicles,
		"workers":  workers,
		"days":     days,
	}).Info("Starting booking simulation")

	tomorrow := time.Now().AddDate(0, 0, 1)
	st, err := run(apiURL, vehicles, workers, days, tomorrow)
	if err != nil {
		log.WithError(err).Fatal("Simulation failed. Ensure the API is reachable.")
	}
	log.WithFields(log.Fields{
		"accepted": st.accepted.Load(),
		"rejected": st.rejected.Load(),
		"failed":   st.failed.Load(),
	}).Info("Booking simulation finished")
}
