package reputation

import (
	"encoding/base64"
	"fmt"
	"time"
)

type Kind string

const (
	KindFile   Kind = "file"
	KindURL    Kind = "url"
	KindDomain Kind = "domain"
	KindIP     Kind = "ip"
)

func (k Kind) Valid() bool {
	switch k {
	case KindFile, KindURL, KindDomain, KindIP:
		return true
	}
	return false
}

// path returns the provider collection path and object id for value.
func (k Kind) path(value string) (collection, id string) {
	switch k {
	case KindFile:
		return "files", value
	case KindURL:
		return "urls", base64.RawURLEncoding.EncodeToString([]byte(value))
	case KindDomain:
		return "domains", value
	default:
		return "ip_addresses", value
	}
}

func (k Kind) guiSegment() string {
	if k == KindIP {
		return "ip-address"
	}
	return string(k)
}

type Verdict string

const (
	VerdictClean      Verdict = "clean"
	VerdictSuspicious Verdict = "suspicious"
	VerdictMalicious  Verdict = "malicious"
)

type Report struct {
	Kind         Kind
	Value        string
	ID           string
	Malicious    int
	Suspicious   int
	Harmless     int
	Undetected   int
	Reputation   int
	LastAnalysis time.Time
	Link         string
}

func (r Report) Verdict() Verdict {
	switch {
	case r.Malicious > 0:
		return VerdictMalicious
	case r.Suspicious > 0:
		return VerdictSuspicious
	default:
		return VerdictClean
	}
}

// Engines is the number of engines that returned a result.
func (r Report) Engines() int {
	return r.Malicious + r.Suspicious + r.Harmless + r.Undetected
}

func (r Report) Summary() string {
	return fmt.Sprintf("%d/%d engines flagged %s as malicious", r.Malicious, r.Engines(), r.Value)
}

type objectResponse struct {
	Data struct {
		ID         string `json:"id"`
		Type       string `json:"type"`
		Attributes struct {
			LastAnalysisDate  int64 `json:"last_analysis_date"`
			Reputation        int   `json:"reputation"`
			LastAnalysisStats struct {
				Harmless   int `json:"harmless"`
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Undetected int `json:"undetected"`
			} `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

func (o objectResponse) report(kind Kind, value string) Report {
	attrs := o.Data.Attributes
	r := Report{
		Kind:       kind,
		Value:      value,
		ID:         o.Data.ID,
		Malicious:  attrs.LastAnalysisStats.Malicious,
		Suspicious: attrs.LastAnalysisStats.Suspicious,
		Harmless:   attrs.LastAnalysisStats.Harmless,
		Undetected: attrs.LastAnalysisStats.Undetected,
		Reputation: attrs.Reputation,
	}
	if attrs.LastAnalysisDate > 0 {
		r.LastAnalysis = time.Unix(attrs.LastAnalysisDate, 0)
	}
	if r.ID != "" {
		r.Link = "https://www.virustotal.com/gui/" + kind.guiSegment() + "/" + r.ID
	}
	return r
}
