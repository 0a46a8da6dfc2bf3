package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mediconnect/scheduler/internal/domain/scheduling"
)

type seedFile struct {
	Patients []seedPerson `json:"patients"`
	Doctors  []seedPerson `json:"doctors"`
}

type seedPerson struct {
	UserID         string `json:"userId"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Specialization string `json:"specialization"`
}

// loadSeedFile adds the patients and doctors listed in path to the memory
// store and returns how many records were added.
func loadSeedFile(store *scheduling.MemoryStore, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	var sf seedFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}

	if err := checkSeedPeople("patient", sf.Patients); err != nil {
		return 0, err
	}
	if err := checkSeedPeople("doctor", sf.Doctors); err != nil {
		return 0, err
	}

	for _, p := range sf.Patients {
		store.AddPatient(scheduling.Patient{UserID: p.UserID, FirstName: p.FirstName, LastName: p.LastName})
	}
	for _, d := range sf.Doctors {
		store.AddDoctor(scheduling.Doctor{
			UserID:         d.UserID,
			FirstName:      d.FirstName,
			LastName:       d.LastName,
			Specialization: d.Specialization,
		})
	}
	return len(sf.Patients) + len(sf.Doctors), nil
}

// checkSeedPeople enforces the same rules as the user_id UNIQUE NOT NULL
// columns: every entry has a userId and no two entries share one.
func checkSeedPeople(kind string, people []seedPerson) error {
	seen := make(map[string]int, len(people))
	for i, p := range people {
		if p.UserID == "" {
			return fmt.Errorf("seed %s %d: userId is required", kind, i)
		}
		if first, ok := seen[p.UserID]; ok {
			return fmt.Errorf("seed %s %d: duplicate userId %q (first used by entry %d)", kind, i, p.UserID, first)
		}
		seen[p.UserID] = i
	}
	return nil
}
