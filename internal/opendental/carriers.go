package opendental

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/savegress/remitmatch/pkg/models"
)

type insPlan struct {
	PlanNum    int64 `json:"PlanNum"`
	CarrierNum int64 `json:"CarrierNum"`
}

type carrier struct {
	CarrierNum  int64  `json:"CarrierNum"`
	CarrierName string `json:"CarrierName"`
}

// Carriers resolves carrier names for claims. The full carrier list is
// fetched once and cached; lookups after a failed bulk fetch fall back to
// fetching the single carrier. Every failure resolves to an empty name.
type Carriers struct {
	client *Client

	mu      sync.Mutex
	byNum   map[int64]string
	fetched bool
}

func NewCarriers(client *Client) *Carriers {
	return &Carriers{
		client: client,
		byNum:  make(map[int64]string),
	}
}

// CarrierName resolves the carrier for the plan the claim was filed under.
// Secondary claims use the secondary plan when one is set.
func (c *Carriers) CarrierName(ctx context.Context, claim *models.Claim) string {
	planNum := claim.PlanNum
	if claim.ClaimType == models.ClaimTypeSecondary && claim.PlanNum2 > 0 {
		planNum = claim.PlanNum2
	}
	if planNum <= 0 {
		return ""
	}

	var plan insPlan
	if err := c.client.get(ctx, fmt.Sprintf("/insplans/%d", planNum), &plan); err != nil {
		log.Printf("carrier lookup: insplan %d fetch failed: %v", planNum, err)
		return ""
	}
	if plan.CarrierNum <= 0 {
		return ""
	}

	return c.lookup(ctx, plan.CarrierNum)
}

func (c *Carriers) lookup(ctx context.Context, carrierNum int64) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if name, ok := c.byNum[carrierNum]; ok {
		return name
	}

	if !c.fetched {
		var all []carrier
		if err := c.client.get(ctx, "/carriers", &all); err != nil {
			log.Printf("carrier lookup: bulk fetch failed: %v", err)
			var single carrier
			if err := c.client.get(ctx, fmt.Sprintf("/carriers/%d", carrierNum), &single); err != nil {
				log.Printf("carrier lookup: carrier %d fetch failed: %v", carrierNum, err)
				return ""
			}
			if single.CarrierName != "" {
				c.byNum[carrierNum] = single.CarrierName
			}
			return single.CarrierName
		}
		for _, carr := range all {
			if carr.CarrierNum > 0 && carr.CarrierName != "" {
				c.byNum[carr.CarrierNum] = carr.CarrierName
			}
		}
		c.fetched = true
	}

	return c.byNum[carrierNum]
}
