package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs, int64 for money in whole currency units.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret    string // secret used to sign admin JWTs
	AccessTTLMin int    // access token time-to-live in minutes
	BcryptCost   int    // bcrypt cost for password hashing

	PaymentAPIBase    string // payment provider REST base URL
	PaymentAPIKey     string // payment provider secret key
	PaymentSuccessURL string // checkout redirect on success
	PaymentCancelURL  string // checkout redirect on cancel
	WebhookSecret     string // shared secret for webhook signatures
	WebhookTolerance  time.Duration

	Currency           string // ISO currency code for all charges
	NightlyRate        int64  // base price per night in whole units
	WeeklyDiscountPct  int    // discount for stays of 7+ nights
	MonthlyDiscountPct int    // discount for stays of 30+ nights

	PendingTTL     time.Duration // pending reservations older than this expire
	PriceTolerance int64         // allowed client/server total deviation
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:  must("APP_ENV"),
		Port: must("APP_PORT"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"), // empty allowed
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:   mustInt("BCRYPT_COST"),

		PaymentAPIBase:    must("PAYMENT_API_BASE"),
		PaymentAPIKey:     must("PAYMENT_API_KEY"),
		PaymentSuccessURL: must("PAYMENT_SUCCESS_URL"),
		PaymentCancelURL:  must("PAYMENT_CANCEL_URL"),
		WebhookSecret:     must("PAYMENT_WEBHOOK_SECRET"),
		WebhookTolerance:  envDur("PAYMENT_WEBHOOK_TOLERANCE", 5*time.Minute),

		Currency:           envStr("CURRENCY", "EUR"),
		NightlyRate:        mustInt64("NIGHTLY_RATE"),
		WeeklyDiscountPct:  envInt("WEEKLY_DISCOUNT_PCT", 10),
		MonthlyDiscountPct: envInt("MONTHLY_DISCOUNT_PCT", 20),

		PendingTTL:     envDur("PENDING_TTL", 30*time.Minute),
		PriceTolerance: 1,
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// mustInt64 parses a required environment variable as an int64.  Used
// for money amounts, which are whole currency units throughout.
func mustInt64(key string) int64 {
	s := must(key)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		log.Fatalf("invalid int64 for %s: %q", key, s)
	}
	return n
}
