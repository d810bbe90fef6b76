package models

// FlagType identifies one fraud heuristic finding.
type FlagType string

const (
	FlagPriceTooLow        FlagType = "price_too_low"
	FlagScamKeywords       FlagType = "scam_keywords"
	FlagUrgencyPressure    FlagType = "urgency_pressure"
	FlagSuspiciousContact  FlagType = "suspicious_contact"
	FlagSuspiciousPayment  FlagType = "payment_method_suspicious"
	FlagMissingInformation FlagType = "missing_information"
	FlagMileageTampering   FlagType = "mileage_tampering"
	FlagUnverifiedPro      FlagType = "unverified_professional"
	FlagLocationMismatch   FlagType = "location_mismatch"
	FlagHiddenDefect       FlagType = "hidden_defect"
	FlagDuplicateListing   FlagType = "duplicate_listing"
)

// Severity of a red flag.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Confidence the engine has in a red flag.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// RiskLevel bands for the overall fraud score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// FraudRedFlag is one structured heuristic finding. Flags annotate a
// listing's fraud-facing side only; they never mutate structural fields.
type FraudRedFlag struct {
	Type       FlagType   `json:"type"`
	Severity   Severity   `json:"severity"`
	Evidence   []string   `json:"evidence"`
	Confidence Confidence `json:"confidence"`
}

// FraudInput carries the listing-like fields the fraud engine inspects.
// It can be built from a canonical Listing or supplied externally (a
// user-pasted ad) without going through the orchestrator.
type FraudInput struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Price          *int     `json:"price"`
	MarketAvgPrice *float64 `json:"market_avg_price"`
	MileageKm      *int     `json:"mileage_km"`
	Year           *int     `json:"year"`
	City           string   `json:"city"`
	URL            string   `json:"url"`
	ContactInfo    string   `json:"contact_info"`
	PhotoCount     int      `json:"photo_count"`
}

// FraudReport is the result of analyzing one listing.
type FraudReport struct {
	RiskLevel          RiskLevel      `json:"risk_level"`
	FraudScore         int            `json:"fraud_score"` // 0-100
	RedFlags           []FraudRedFlag `json:"red_flags"`
	SuspiciousPatterns []string       `json:"suspicious_patterns"`
	Recommendations    []string       `json:"recommendations"`
}
