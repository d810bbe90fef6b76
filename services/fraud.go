package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"carscout/models"
)

// Keyword tiers for scam-indicative phrasing. Lists are lowercase; the
// input text is folded before matching.
var (
	criticalKeywords = []string{
		"western union",
		"moneygram",
		"mandat cash",
		"paypal entre proches",
		"envoi par transporteur",
		"vehicule a l'etranger",
		"véhicule à l'étranger",
	}
	highKeywords = []string{
		"depart a l'etranger",
		"départ à l'étranger",
		"prix sacrifie",
		"prix sacrifié",
		"cause divorce urgent",
		"mutation militaire",
	}
	mediumKeywords = []string{
		"aucun echange",
		"aucun échange",
		"pas de curieux",
		"premier arrive premier servi",
		"premier arrivé premier servi",
	}

	urgencyTerms = []string{
		"urgent",
		"très vite",
		"tres vite",
		"aujourd'hui seulement",
		"dernière chance",
		"derniere chance",
		"part ce soir",
		"rapidement",
		"ne tardez pas",
	}

	paymentTerms = []string{
		"virement immédiat",
		"virement immediat",
		"virement avant",
		"paiement avant la visite",
		"payer avant de voir",
		"cash uniquement",
		"espèces uniquement",
		"especes uniquement",
		"virement uniquement",
		"acompte pour reserver",
		"acompte pour réserver",
	}

	damageTerms = []string{
		"accident",
		"accidenté",
		"accidente",
		"choc",
		"rayures",
		"moteur hs",
		"boite hs",
		"boîte hs",
		"à réparer",
		"a reparer",
		"vice",
		"épave",
		"epave",
		"grêlé",
		"grele",
	}
	damageDisclaimers = []string{
		"jamais accidenté",
		"jamais accidente",
		"non accidenté",
		"non accidente",
		"sans accident",
	}

	proTerms = []string{
		"professionnel",
		"vendeur pro",
		"garage agréé",
		"garage agree",
		"concessionnaire",
	}
	historyTerms = []string{
		"historique",
		"carnet d'entretien",
		"factures",
		"entretien à jour",
		"entretien a jour",
	}

	freemailDomains = []string{"@gmail.", "@hotmail.", "@yahoo.", "@outlook.", "@aol."}

	// Numbers with a non-French international prefix.
	foreignPhoneRegexp = regexp.MustCompile(`\+(?:22[0-9]|23[0-9]|24[0-9]|35[0-9]|37[0-9]|88[0-9])\s?\d{6,}`)

	// Major city slugs recognizable in listing URLs.
	knownCitySlugs = []string{
		"paris", "marseille", "lyon", "toulouse", "nice", "nantes",
		"montpellier", "strasbourg", "bordeaux", "lille", "rennes",
		"reims", "toulon", "grenoble", "dijon", "angers", "nimes",
	}
)

// Advisory ladders selected by score band, not generated per flag.
var (
	recsLow = []string{
		"Aucun signal majeur détecté. Vérifiez le véhicule et les documents avant l'achat.",
	}
	recsMedium = []string{
		"Demandez l'historique complet du véhicule (carnet, factures).",
		"Exigez une visite et un essai avant tout engagement.",
	}
	recsHigh = []string{
		"Ne versez aucun acompte avant d'avoir vu le véhicule.",
		"Vérifiez l'identité du vendeur et la carte grise.",
		"Privilégiez un paiement sécurisé, jamais de virement anticipé.",
	}
	recsCritical = []string{
		"Annonce à très haut risque : n'engagez aucun paiement.",
		"Ne communiquez aucune donnée personnelle ou bancaire.",
		"Signalez l'annonce à la plateforme concernée.",
	}
)

// FraudEngine scores deception risk. Like the relevance engine it is a
// pure function of its input: ten independent heuristic checks, each
// additive and each emitting a structured flag when triggered.
type FraudEngine struct {
	refYear int
}

// NewFraudEngine fixes the reference year used by the mileage-vs-age check.
func NewFraudEngine() *FraudEngine {
	return &FraudEngine{refYear: time.Now().Year()}
}

// fraudFindings accumulates check results.
type fraudFindings struct {
	score    int
	flags    []models.FraudRedFlag
	patterns []string
}

func (f *fraudFindings) add(points int, flag models.FraudRedFlag, pattern string) {
	f.score += points
	f.flags = append(f.flags, flag)
	if pattern != "" {
		f.patterns = append(f.patterns, pattern)
	}
}

// Analyze runs all heuristic checks against one listing-like input. It is
// independent of the search pipeline and may be invoked for a single
// externally supplied ad.
func (e *FraudEngine) Analyze(in models.FraudInput) *models.FraudReport {
	text := foldText(in.Title + " " + in.Description)
	f := &fraudFindings{}

	e.checkPriceTooLow(in, f)
	e.checkScamKeywords(text, f)
	e.checkUrgency(text, f)
	e.checkContact(in, text, f)
	e.checkPaymentMethods(text, f)
	e.checkMissingInformation(in, f)
	e.checkMileageTampering(in, f)
	e.checkUnverifiedPro(text, f)
	e.checkLocationMismatch(in, f)
	e.checkHiddenDefects(text, f)

	score := f.score
	if score > 100 {
		score = 100
	}

	return &models.FraudReport{
		RiskLevel:          riskLevelFor(score),
		FraudScore:         score,
		RedFlags:           f.flags,
		SuspiciousPatterns: f.patterns,
		Recommendations:    recommendationsFor(score),
	}
}

// AnalyzeListing builds the fraud input from a canonical listing and the
// current market stats, then analyzes it.
func (e *FraudEngine) AnalyzeListing(l *models.Listing, stats *models.MarketStats) *models.FraudReport {
	in := models.FraudInput{
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		MileageKm:   l.MileageKm,
		Year:        l.Year,
		City:        l.City,
		URL:         l.URL,
		PhotoCount:  l.PhotoCount,
	}
	if stats != nil {
		in.MarketAvgPrice = stats.AvgPrice
	}
	return e.Analyze(in)
}

// Check 1: price far below market.
func (e *FraudEngine) checkPriceTooLow(in models.FraudInput, f *fraudFindings) {
	if in.Price == nil || in.MarketAvgPrice == nil || *in.MarketAvgPrice <= 0 {
		return
	}
	ratio := float64(*in.Price) / *in.MarketAvgPrice
	evidence := fmt.Sprintf("prix %d EUR contre une moyenne marché de %.0f EUR (ratio %.2f)",
		*in.Price, *in.MarketAvgPrice, ratio)

	switch {
	case ratio < 0.6:
		f.add(40, models.FraudRedFlag{
			Type:       models.FlagPriceTooLow,
			Severity:   models.SeverityCritical,
			Evidence:   []string{evidence},
			Confidence: models.ConfidenceHigh,
		}, "prix anormalement bas")
	case ratio < 0.75:
		f.add(25, models.FraudRedFlag{
			Type:       models.FlagPriceTooLow,
			Severity:   models.SeverityHigh,
			Evidence:   []string{evidence},
			Confidence: models.ConfidenceMedium,
		}, "prix nettement sous le marché")
	}
}

// Check 2: scam-indicative keyword tiers.
func (e *FraudEngine) checkScamKeywords(text string, f *fraudFindings) {
	tiers := []struct {
		words    []string
		points   int
		severity models.Severity
	}{
		{criticalKeywords, 30, models.SeverityCritical},
		{highKeywords, 20, models.SeverityHigh},
		{mediumKeywords, 10, models.SeverityMedium},
	}

	for _, tier := range tiers {
		hits := matchTerms(text, tier.words)
		for _, hit := range hits {
			f.add(tier.points, models.FraudRedFlag{
				Type:       models.FlagScamKeywords,
				Severity:   tier.severity,
				Evidence:   []string{hit},
				Confidence: models.ConfidenceMedium,
			}, "vocabulaire d'arnaque: "+hit)
		}
	}
}

// Check 3: urgency-pressure language (two distinct terms required).
func (e *FraudEngine) checkUrgency(text string, f *fraudFindings) {
	hits := matchTerms(text, urgencyTerms)
	if len(hits) < 2 {
		return
	}
	f.add(20, models.FraudRedFlag{
		Type:       models.FlagUrgencyPressure,
		Severity:   models.SeverityMedium,
		Evidence:   hits,
		Confidence: models.ConfidenceMedium,
	}, "pression à l'urgence")
}

// Check 4: suspicious contact patterns.
func (e *FraudEngine) checkContact(in models.FraudInput, text string, f *fraudFindings) {
	var evidence []string
	contact := foldText(in.ContactInfo) + " " + text

	if m := foreignPhoneRegexp.FindString(contact); m != "" {
		evidence = append(evidence, "numéro à préfixe étranger: "+m)
	}
	for _, domain := range freemailDomains {
		if strings.Contains(contact, domain) {
			evidence = append(evidence, "adresse jetable/générique ("+strings.Trim(domain, "@.")+")")
			break
		}
	}
	if len(evidence) == 0 {
		return
	}
	f.add(10, models.FraudRedFlag{
		Type:       models.FlagSuspiciousContact,
		Severity:   models.SeverityLow,
		Evidence:   evidence,
		Confidence: models.ConfidenceLow,
	}, "coordonnées suspectes")
}

// Check 5: suspicious payment-method language.
func (e *FraudEngine) checkPaymentMethods(text string, f *fraudFindings) {
	hits := matchTerms(text, paymentTerms)
	if len(hits) == 0 {
		return
	}
	f.add(35, models.FraudRedFlag{
		Type:       models.FlagSuspiciousPayment,
		Severity:   models.SeverityCritical,
		Evidence:   hits,
		Confidence: models.ConfidenceHigh,
	}, "modalités de paiement à risque")
}

// Check 6: too much information missing.
func (e *FraudEngine) checkMissingInformation(in models.FraudInput, f *fraudFindings) {
	var missing []string
	if in.Price == nil {
		missing = append(missing, "prix")
	}
	if in.MileageKm == nil {
		missing = append(missing, "kilométrage")
	}
	if in.Year == nil {
		missing = append(missing, "année")
	}
	if strings.TrimSpace(in.City) == "" {
		missing = append(missing, "localisation")
	}
	if in.PhotoCount == 0 {
		missing = append(missing, "photos")
	}
	if len(strings.TrimSpace(in.Description)) < 50 {
		missing = append(missing, "description détaillée")
	}
	if len(missing) < 3 {
		return
	}
	f.add(15, models.FraudRedFlag{
		Type:       models.FlagMissingInformation,
		Severity:   models.SeverityMedium,
		Evidence:   missing,
		Confidence: models.ConfidenceHigh,
	}, "annonce lacunaire")
}

// Check 7: implausibly low odometer for the vehicle's age.
func (e *FraudEngine) checkMileageTampering(in models.FraudInput, f *fraudFindings) {
	if in.MileageKm == nil || in.Year == nil {
		return
	}
	age := e.refYear - *in.Year
	if *in.MileageKm >= 1000 || age < 3 {
		return
	}
	f.add(40, models.FraudRedFlag{
		Type:       models.FlagMileageTampering,
		Severity:   models.SeverityCritical,
		Evidence:   []string{fmt.Sprintf("%d km sur un véhicule de %d ans", *in.MileageKm, age)},
		Confidence: models.ConfidenceMedium,
	}, "kilométrage incohérent avec l'âge")
}

// Check 8: professional-seller language without service history.
func (e *FraudEngine) checkUnverifiedPro(text string, f *fraudFindings) {
	proHits := matchTerms(text, proTerms)
	if len(proHits) == 0 {
		return
	}
	if len(matchTerms(text, historyTerms)) > 0 {
		return
	}
	f.add(10, models.FraudRedFlag{
		Type:       models.FlagUnverifiedPro,
		Severity:   models.SeverityLow,
		Evidence:   proHits,
		Confidence: models.ConfidenceLow,
	}, "vendeur pro sans historique d'entretien")
}

// Check 9: stated city differs from the city embedded in the URL.
func (e *FraudEngine) checkLocationMismatch(in models.FraudInput, f *fraudFindings) {
	city := citySlug(in.City)
	if city == "" || in.URL == "" {
		return
	}
	urlCity := cityFromURL(in.URL)
	if urlCity == "" || urlCity == city {
		return
	}
	f.add(10, models.FraudRedFlag{
		Type:       models.FlagLocationMismatch,
		Severity:   models.SeverityLow,
		Evidence:   []string{fmt.Sprintf("ville annoncée %q, URL mentionne %q", in.City, urlCity)},
		Confidence: models.ConfidenceLow,
	}, "localisation incohérente")
}

// Check 10: vice-caché indicator, damage vocabulary with no disclaimer.
func (e *FraudEngine) checkHiddenDefects(text string, f *fraudFindings) {
	hits := matchTerms(text, damageTerms)
	if len(hits) < 3 {
		return
	}
	if len(matchTerms(text, damageDisclaimers)) > 0 {
		return
	}
	f.add(25, models.FraudRedFlag{
		Type:       models.FlagHiddenDefect,
		Severity:   models.SeverityHigh,
		Evidence:   hits,
		Confidence: models.ConfidenceMedium,
	}, "indices de vice caché")
}

func riskLevelFor(score int) models.RiskLevel {
	switch {
	case score >= 70:
		return models.RiskCritical
	case score >= 50:
		return models.RiskHigh
	case score >= 30:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func recommendationsFor(score int) []string {
	switch {
	case score >= 70:
		return recsCritical
	case score >= 50:
		return recsHigh
	case score >= 30:
		return recsMedium
	default:
		return recsLow
	}
}

// matchTerms returns the distinct terms present in text.
func matchTerms(text string, terms []string) []string {
	var hits []string
	for _, term := range terms {
		if strings.Contains(text, term) {
			hits = append(hits, term)
		}
	}
	return hits
}

func foldText(s string) string {
	return strings.ToLower(s)
}

// citySlug normalizes a city name for URL comparison.
func citySlug(city string) string {
	s := strings.ToLower(strings.TrimSpace(city))
	s = strings.ReplaceAll(s, " ", "-")
	return s
}

// cityFromURL scans URL path segments and query values for a known city
// token. Listing URLs on the supported sources embed the ad's department
// or city in the slug.
func cityFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	haystack := strings.ToLower(u.Path)
	for _, vals := range u.Query() {
		for _, v := range vals {
			haystack += " " + strings.ToLower(v)
		}
	}

	for _, slug := range knownCitySlugs {
		if strings.Contains(haystack, slug) {
			return slug
		}
	}
	return ""
}
