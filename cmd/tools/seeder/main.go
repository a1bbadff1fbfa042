package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/noah-isme/backend-storefront/internal/auth"
	"github.com/noah-isme/backend-storefront/internal/common"
	"github.com/noah-isme/backend-storefront/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	currencies := seedCurrencies(db)
	regions := seedRegions(db)
	countries := seedCountries(db, currencies, regions)
	seedProducts(db)
	seedCoupons(db)
	seedShipmentMethods(db, countries, regions)

	log.Println("Seeding completed successfully!")
	printDevTokens()
}

func seedCurrencies(db *sql.DB) map[string]string {
	currencies := []struct {
		Code   string
		Symbol string
		Rate   string
	}{
		{"EUR", "€", "1"},
		{"GBP", "£", "0.85"},
		{"USD", "$", "1.08"},
		{"SEK", "kr", "11.2"},
		{"CHF", "Fr", "0.96"},
	}

	fmt.Println("Seeding Currencies...")
	ids := make(map[string]string, len(currencies))
	for _, c := range currencies {
		var id string
		err := db.QueryRow(`
			INSERT INTO currencies (code, symbol, rate)
			VALUES ($1, $2, $3)
			ON CONFLICT (code) DO UPDATE SET symbol = EXCLUDED.symbol, rate = EXCLUDED.rate
			RETURNING id;
		`, c.Code, c.Symbol, c.Rate).Scan(&id)
		if err != nil {
			log.Fatalf("Failed to upsert currency %s: %v", c.Code, err)
		}
		ids[c.Code] = id
	}
	return ids
}

func seedRegions(db *sql.DB) map[string]string {
	fmt.Println("Seeding Regions...")
	ids := map[string]string{}
	for _, name := range []string{"Europe", "Nordics", "North America"} {
		var id string
		err := db.QueryRow(`
			INSERT INTO regions (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id;
		`, name).Scan(&id)
		if err != nil {
			log.Fatalf("Failed to upsert region %s: %v", name, err)
		}
		ids[name] = id
	}
	return ids
}

func seedCountries(db *sql.DB, currencies, regions map[string]string) map[string]string {
	countries := []struct {
		Code        string
		Name        string
		Currency    string
		Region      string
		VATRate     any
		VATRequired bool
	}{
		{"NL", "Netherlands", "EUR", "Europe", "0.21", true},
		{"DE", "Germany", "EUR", "Europe", "0.19", true},
		{"BE", "Belgium", "EUR", "Europe", "0.21", true},
		{"FR", "France", "EUR", "Europe", "0.20", true},
		{"SE", "Sweden", "SEK", "Nordics", "0.25", true},
		{"GB", "United Kingdom", "GBP", "Europe", "0.20", false},
		{"CH", "Switzerland", "CHF", "Europe", nil, false},
		{"US", "United States", "USD", "North America", nil, false},
	}

	fmt.Println("Seeding Countries...")
	ids := make(map[string]string, len(countries))
	for _, c := range countries {
		var id string
		err := db.QueryRow(`
			INSERT INTO countries (code, name, currency_id, region_id, vat_rate, vat_required)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (code) DO UPDATE SET
				name = EXCLUDED.name,
				currency_id = EXCLUDED.currency_id,
				region_id = EXCLUDED.region_id,
				vat_rate = EXCLUDED.vat_rate,
				vat_required = EXCLUDED.vat_required
			RETURNING id;
		`, c.Code, c.Name, currencies[c.Currency], regions[c.Region], c.VATRate, c.VATRequired).Scan(&id)
		if err != nil {
			log.Fatalf("Failed to upsert country %s: %v", c.Code, err)
		}
		ids[c.Code] = id
	}
	return ids
}

func seedProducts(db *sql.DB) {
	products := []struct {
		Name  string
		Price string
	}{
		{"Widget", "50.00"},
		{"Gadget", "12.50"},
		{"Gizmo", "129.99"},
		{"Doohickey", "4.25"},
		{"Thingamajig", "75.00"},
	}

	fmt.Println("Seeding Products...")
	for _, p := range products {
		_, err := db.Exec(`
			INSERT INTO products (name, unit_price)
			SELECT $1, $2
			WHERE NOT EXISTS (SELECT 1 FROM products WHERE name = $1);
		`, p.Name, p.Price)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Name, err)
		}
	}
}

func seedCoupons(db *sql.DB) {
	coupons := []struct {
		Code   string
		Rate   string
		Amount string
		State  string
	}{
		{"10PERC", "0.10", "0", "active"},
		{"FIVEOFF", "0", "5.00", "active"},
		{"WELCOME15", "0.15", "0", "active"},
		{"EXPIRED20", "0.20", "0", "inactive"},
	}

	fmt.Println("Seeding Coupons...")
	for _, c := range coupons {
		_, err := db.Exec(`
			INSERT INTO coupons (code, rate, amount, state)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (code) DO UPDATE SET rate = EXCLUDED.rate, amount = EXCLUDED.amount, state = EXCLUDED.state;
		`, c.Code, c.Rate, c.Amount, c.State)
		if err != nil {
			log.Printf("Failed to seed coupon %s: %v", c.Code, err)
		}
	}
}

func seedShipmentMethods(db *sql.DB, countries, regions map[string]string) {
	methods := []struct {
		Name    string
		Price   string
		Country string
		Region  string
	}{
		{"EuropeStandard", "4.95", "", "Europe"},
		{"NordicsPost", "6.50", "", "Nordics"},
		{"NetherlandsQuick", "9.95", "NL", ""},
		{"GermanyExpress", "12.00", "DE", ""},
		{"USGround", "14.00", "", "North America"},
	}

	fmt.Println("Seeding Shipment Methods...")
	for _, m := range methods {
		var countryID, regionID any
		if m.Country != "" {
			countryID = countries[m.Country]
		}
		if m.Region != "" {
			regionID = regions[m.Region]
		}
		_, err := db.Exec(`
			INSERT INTO shipment_methods (name, unit_price, country_id, region_id)
			SELECT $1, $2, $3, $4
			WHERE NOT EXISTS (SELECT 1 FROM shipment_methods WHERE name = $1);
		`, m.Name, m.Price, countryID, regionID)
		if err != nil {
			log.Printf("Failed to seed shipment method %s: %v", m.Name, err)
		}
	}
}

// printDevTokens issues a customer and an admin token for local testing.
func printDevTokens() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Println("JWT_SECRET not set, skipping dev tokens")
		return
	}
	tokens, err := auth.NewTokens(config.AuthConfig{
		JWTSecret:      secret,
		Issuer:         envOrDefault("JWT_ISSUER", "storefront"),
		AccessTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		log.Printf("Failed to build token issuer: %v", err)
		return
	}
	for _, role := range []string{"customer", common.RoleAdmin} {
		token, exp, err := tokens.Issue(uuid.New(), role)
		if err != nil {
			log.Printf("Failed to issue %s token: %v", role, err)
			continue
		}
		fmt.Printf("%s token (expires %s):\n%s\n", role, exp.Format(time.RFC3339), token)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
