// Licensed to Wholesale Dashboard under one or more agreements.
// Wholesale Dashboard licenses this file to you under the Apache 2.0 License.
// See the LICENSE file in the project root for more information.

// Package main implements a mock Wholecell inventory API for integration
// testing. It serves a small fixture inventory behind the same Basic auth
// scheme as the real service, allowing end-to-end testing of the proxy
// without real credentials.
package main

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"log"
	"net/http"
)

// Fixture credentials the proxy under test must present.
const (
	fixtureAppID     = "test-app"
	fixtureAppSecret = "test-secret"
)

// item mirrors the subset of Wholecell's inventory shape the dashboard uses.
type item struct {
	ESN              string         `json:"esn"`
	Status           string         `json:"status"`
	Product          map[string]any `json:"product,omitempty"`
	ProductVariation map[string]any `json:"product_variation,omitempty"`
	TotalPricePaid   float64        `json:"total_price_paid"`
}

// fixtures is the mock inventory. It includes the three known test IMEIs;
// the last one has no product object so field extraction tolerance is
// exercised end to end.
var fixtures = []item{
	{
		ESN:              "H95DHMF9Q1GC",
		Status:           "Sold",
		Product:          map[string]any{"model": "iPhone 11"},
		ProductVariation: map[string]any{"grade": "A"},
		TotalPricePaid:   185,
	},
	{
		ESN:              "F9FG5XAJQ1GC",
		Status:           "In Stock",
		Product:          map[string]any{"model": "iPhone XR"},
		ProductVariation: map[string]any{"grade": "B"},
		TotalPricePaid:   120,
	},
	{
		ESN:            "F9GG5BXXQ1GC",
		Status:         "In Stock",
		TotalPricePaid: 95,
	},
	{
		ESN:              "DNPJX0A1KXKT",
		Status:           "Returned",
		Product:          map[string]any{"model": "iPhone SE"},
		ProductVariation: map[string]any{"grade": "C"},
		TotalPricePaid:   60,
	},
}

func main() {
	listen := flag.String("listen", ":9390", "HTTP listen address")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/inventories", handleInventories)

	log.Printf("mock-wholecell listening on %s", *listen)
	if err := http.ListenAndServe(*listen, mux); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// authorized checks the Basic auth token and X-App-Id header against the
// fixture credentials.
func authorized(r *http.Request) bool {
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(fixtureAppID+":"+fixtureAppSecret))
	if r.Header.Get("Authorization") != want {
		return false
	}
	return r.Header.Get("X-App-Id") == fixtureAppID
}

// handleInventories implements GET /api/v1/inventories. With an esn query
// parameter it returns the matching items as a JSON array, or 404 when
// nothing matches. Without one it returns the paged listing shape.
func handleInventories(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid credentials"})
		return
	}

	esn := r.URL.Query().Get("esn")
	if esn == "" {
		json.NewEncoder(w).Encode(map[string]any{
			"data":  fixtures,
			"page":  1,
			"pages": 1,
		})
		return
	}

	var matches []item
	for _, it := range fixtures {
		if it.ESN == esn {
			matches = append(matches, it)
		}
	}
	if len(matches) == 0 {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
		return
	}

	json.NewEncoder(w).Encode(matches)
}
