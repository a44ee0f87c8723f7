package power

import (
	"strings"
	"testing"

	"github.com/MiranoVerhoef/proxmox-ups-shutdown-enhanced/pkg/models"
)

func reading(status string, charge float64, chargeKnown bool) *models.Reading {
	return &models.Reading{
		StatusTokens:  strings.Fields(status),
		ChargePercent: charge,
		ChargeKnown:   chargeKnown,
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name             string
		reading          *models.Reading
		proceedOnUnknown bool
		threshold        float64
		want             models.Decision
	}{
		{"online", reading("OL", 80, true), false, 20, models.DecisionAbstain},
		{"on battery", reading("OB", 40, true), false, 20, models.DecisionProceed},
		{"on battery low", reading("OB LB", 5, true), false, 20, models.DecisionProceed},
		{"boost below threshold", reading("OL BOOST", 15, true), false, 20, models.DecisionProceed},
		{"boost at threshold", reading("OL BOOST", 20, true), false, 20, models.DecisionProceed},
		{"boost above threshold", reading("OL BOOST", 25, true), false, 20, models.DecisionAbstain},
		{"boost charge unknown", reading("OL BOOST", 0, false), false, 20, models.DecisionAbstain},
		{"unreadable refuse", nil, false, 20, models.DecisionFail},
		{"unreadable proceed", nil, true, 20, models.DecisionProceed},
		{"empty status refuse", &models.Reading{}, false, 20, models.DecisionFail},
		{"empty status proceed", &models.Reading{}, true, 20, models.DecisionProceed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.reading, tc.proceedOnUnknown, tc.threshold)
			if got != tc.want {
				t.Errorf("Classify() = %s, want %s", got, tc.want)
			}
		})
	}
}
