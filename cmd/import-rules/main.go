package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/casita-pms/revenueservice/internal/config"
	"github.com/casita-pms/revenueservice/internal/db"
	"github.com/casita-pms/revenueservice/internal/log"
	"github.com/casita-pms/revenueservice/internal/revenue/domain"
	"github.com/casita-pms/revenueservice/internal/revenue/repo/postgres"
)

// Expected CSV columns:
// property_id, unit_id, name, category, adjustment_type, adjustment_value,
// priority, min_nights, reduce_min_stay, active, config
// where unit_id may be empty for property-wide rules and config is the JSON
// activation predicate for the category.

func main() {
	if len(os.Args) < 2 {
		stdlog.Fatal("Usage: import-rules <csv-file-path>")
	}

	csvFilePath := os.Args[1]

	configPath := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		configPath = v
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	if err := log.Init(cfg.Log.Level); err != nil {
		stdlog.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx := context.Background()

	dbPool, err := db.NewPool(ctx, &db.Config{
		DSN:      cfg.Postgres.DSN,
		MaxConns: cfg.Postgres.MaxConns,
	})
	if err != nil {
		stdlog.Fatalf("Failed to create database pool: %v", err)
	}
	defer dbPool.Close()

	store := postgres.NewStoreWithPool(dbPool.Pool)

	rules, err := readRulesFromCSV(csvFilePath)
	if err != nil {
		stdlog.Fatalf("Failed to read rules from CSV: %v", err)
	}

	fmt.Printf("Loaded %d pricing rules from CSV\n", len(rules))

	imported := 0
	for _, r := range rules {
		if _, err := store.Rules().Upsert(ctx, r); err != nil {
			fmt.Printf("Warning: skipping rule %q: %v\n", r.Name, err)
			continue
		}
		imported++
	}

	fmt.Printf("Successfully imported %d pricing rules\n", imported)
}

func readRulesFromCSV(filePath string) ([]domain.Rule, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Skip header row
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rules []domain.Rule
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		line++

		if len(record) < 11 {
			fmt.Printf("Warning: line %d has %d columns, skipping\n", line, len(record))
			continue
		}

		rule, err := parseRule(record)
		if err != nil {
			fmt.Printf("Warning: line %d: %v\n", line, err)
			continue
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

func parseRule(record []string) (domain.Rule, error) {
	propertyID, err := uuid.Parse(strings.TrimSpace(record[0]))
	if err != nil {
		return domain.Rule{}, fmt.Errorf("invalid property_id: %w", err)
	}

	unitID := uuid.Nil
	if v := strings.TrimSpace(record[1]); v != "" {
		unitID, err = uuid.Parse(v)
		if err != nil {
			return domain.Rule{}, fmt.Errorf("invalid unit_id: %w", err)
		}
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(record[5]), 64)
	if err != nil {
		return domain.Rule{}, fmt.Errorf("invalid adjustment_value: %w", err)
	}
	priority, err := strconv.Atoi(strings.TrimSpace(record[6]))
	if err != nil {
		return domain.Rule{}, fmt.Errorf("invalid priority: %w", err)
	}
	minNights := 0
	if v := strings.TrimSpace(record[7]); v != "" {
		minNights, err = strconv.Atoi(v)
		if err != nil {
			return domain.Rule{}, fmt.Errorf("invalid min_nights: %w", err)
		}
	}

	var ruleConfig domain.RuleConfig
	if err := json.Unmarshal([]byte(record[10]), &ruleConfig); err != nil {
		return domain.Rule{}, fmt.Errorf("invalid config JSON: %w", err)
	}

	rule := domain.Rule{
		ID:              uuid.New(),
		PropertyID:      propertyID,
		UnitID:          unitID,
		Name:            strings.TrimSpace(record[2]),
		Category:        domain.RuleCategory(strings.TrimSpace(record[3])),
		AdjustmentType:  domain.AdjustmentType(strings.TrimSpace(record[4])),
		AdjustmentValue: value,
		Priority:        priority,
		MinNights:       minNights,
		ReduceMinStay:   parseBool(record[8]),
		Active:          parseBool(record[9]),
		Config:          ruleConfig,
	}

	if err := rule.Validate(); err != nil {
		return domain.Rule{}, err
	}
	return rule, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}
