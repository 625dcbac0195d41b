package scoring

import (
	"github.com/use-agent/duel/models"
	"github.com/use-agent/duel/simhash"
)

// Agreement compares every pair of successful outcomes. Text distance uses
// the text_content attribute when present, else Content. DOM distance is -1
// unless both sides carry raw_html. Pairs follow input order.
func Agreement(outcomes []models.Outcome) []models.AgreementPair {
	type prints struct {
		id     string
		text   uint64
		dom    uint64
		hasDOM bool
	}
	var ps []prints
	for _, o := range outcomes {
		if !o.Succeeded || !o.HasContent() {
			continue
		}
		text := o.Attributes.String(models.AttrTextContent)
		if text == "" {
			text = o.Content
		}
		p := prints{id: o.StrategyID, text: simhash.Fingerprint(text)}
		if raw := o.Attributes.String(models.AttrRawHTML); raw != "" {
			p.dom, p.hasDOM = simhash.FingerprintDOM(raw), true
		}
		ps = append(ps, p)
	}

	var pairs []models.AgreementPair
	for i := range ps {
		for j := i + 1; j < len(ps); j++ {
			pair := models.AgreementPair{
				A:            ps[i].id,
				B:            ps[j].id,
				TextDistance: simhash.Distance(ps[i].text, ps[j].text),
				DOMDistance:  -1,
			}
			if ps[i].hasDOM && ps[j].hasDOM {
				pair.DOMDistance = simhash.Distance(ps[i].dom, ps[j].dom)
			}
			pairs = append(pairs, pair)
		}
	}
	return pairs
}
