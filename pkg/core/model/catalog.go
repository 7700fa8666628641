package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidCombination is returned for combination codes the catalog does not know
var ErrInvalidCombination = errors.New("invalid combination")

// Tier ranks combinations by how desirable they are to hand out
type Tier int

const (
	TierHigh Tier = iota
	TierMedium
	TierLow
)

// Tiers in priority order
var Tiers = []Tier{TierHigh, TierMedium, TierLow}

func (t Tier) String() string {
	switch t {
	case TierMedium:
		return "medium"
	case TierLow:
		return "low"
	default:
		return "high"
	}
}

// ParseTier converts a tier name into a Tier
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return TierHigh, nil
	case "", "medium":
		return TierMedium, nil
	case "low":
		return TierLow, nil
	}
	return 0, fmt.Errorf("unknown tier %q", s)
}

// Combination pairs two posts held by the same person on the same day
type Combination struct {
	Code   string
	First  PostType
	Second PostType
	Tier   Tier
}

// Posts returns both halves of the combination
func (c Combination) Posts() []PostType {
	return []PostType{c.First, c.Second}
}

// CustomPost is a site-specific post added to the standard catalog
type CustomPost struct {
	Name           PostType
	Start          ClockTime
	End            ClockTime
	Audience       Audience
	DayTypes       []DayType
	StatisticGroup Group
	Combinations   []CustomCombination
}

// CustomCombination pairs a custom post with a partner post
type CustomCombination struct {
	Partner PostType
	Code    string
	Tier    Tier
}

// Catalog holds every known post, the post to statistic group tables and the combinations
type Catalog struct {
	posts         map[PostType]PostDefinition
	order         []PostType
	weekdayGroups map[PostType]Group
	weekendGroups map[PostType]Group
	combinations  map[string]Combination
	comboOrder    []string
}

type standardPost struct {
	post    PostType
	start   ClockTime
	end     ClockTime
	aud     Audience
	weekday Group
	weekend Group
}

var standardPosts = []standardPost{
	{"ML", Clock(7, 0), Clock(13, 0), AudienceDoctors, "VmS", "VmD"},
	{"MM", Clock(8, 0), Clock(13, 0), AudienceDoctors, "VmS", "VmD"},
	{"MC", Clock(9, 0), Clock(13, 0), AudienceDoctors, "VmS", "VmD"},
	{"CM", Clock(9, 0), Clock(13, 0), AudienceBoth, "CmS", "CmD"},
	{"HM", Clock(9, 0), Clock(13, 0), AudienceDoctors, "CmS", "CmD"},
	{"SM", Clock(9, 0), Clock(13, 0), AudienceDoctors, "CmS", "CmD"},
	{"RM", Clock(8, 0), Clock(13, 0), AudienceDoctors, "CmS", "CmD"},
	{"CA", Clock(13, 0), Clock(18, 0), AudienceBoth, "CaS", "CaD"},
	{"HA", Clock(13, 0), Clock(18, 0), AudienceDoctors, "CaS", "CaD"},
	{"SA", Clock(13, 0), Clock(18, 0), AudienceDoctors, "CaS", "CaD"},
	{"RA", Clock(13, 0), Clock(18, 0), AudienceDoctors, "CaS", "CaD"},
	{"AL", Clock(13, 0), Clock(20, 0), AudienceDoctors, "VaS", "VaD"},
	{"AC", Clock(14, 0), Clock(18, 0), AudienceDoctors, "VaS", "VaD"},
	{"CS", Clock(18, 0), Clock(23, 0), AudienceBoth, "CsS", "CsD"},
	{"HS", Clock(18, 0), Clock(23, 0), AudienceDoctors, "CsS", "CsD"},
	{"SS", Clock(18, 0), Clock(23, 0), AudienceDoctors, "CsS", "CsD"},
	{"RS", Clock(18, 0), Clock(23, 0), AudienceDoctors, "CsS", "CsD"},
	{PostNC, Clock(20, 0), Clock(0, 0), AudienceBoth, GroupNMC, "NAMw"},
	{PostNA, Clock(20, 0), Clock(1, 0), AudienceBoth, GroupNMC, "NAMw"},
	{PostNM, Clock(20, 0), Clock(2, 0), AudienceBoth, GroupNMC, "NAMw"},
	{PostNL, Clock(20, 0), Clock(7, 0), AudienceDoctors, GroupNL, "NLw"},
}

var standardCombinations = map[Tier][]string{
	TierHigh: {
		"MLCA", "MLCS", "MLNC", "MLNM", "MMCA", "MMCS", "CMCA",
		"CMCS", "CMNC", "CMNM", "MCCA", "MCCS", "CANC", "CANM",
	},
	TierMedium: {
		"MLHA", "MLSA", "MLRA", "MMHA", "MMSA", "CMHA", "HMCA",
		"SMCA", "RMCA", "HMCS", "SMCS", "RMCS", "CAHS", "ALNC",
	},
	TierLow: {
		"MLAL", "MMAL", "MCAL", "CMAL", "HMHA", "SMSA",
		"RMRA", "HASS", "SARS", "RAHS", "ACNC", "MLAC",
	},
}

// StandardCatalog returns the catalog of standard weekday posts and combinations
func StandardCatalog() *Catalog {
	c := &Catalog{
		posts:         make(map[PostType]PostDefinition),
		weekdayGroups: make(map[PostType]Group),
		weekendGroups: make(map[PostType]Group),
		combinations:  make(map[string]Combination),
	}

	for _, sp := range standardPosts {
		c.posts[sp.post] = PostDefinition{
			Type:     sp.post,
			Start:    sp.start,
			End:      sp.end,
			Audience: sp.aud,
			DayTypes: []DayType{DayTypeWeekday, DayTypeSaturday, DayTypeSundayHoliday},
			Night:    sp.start >= Clock(20, 0),
		}
		c.order = append(c.order, sp.post)
		c.weekdayGroups[sp.post] = sp.weekday
		c.weekendGroups[sp.post] = sp.weekend
	}

	for _, tier := range Tiers {
		for _, code := range standardCombinations[tier] {
			// Standard codes are always two two-letter posts
			c.addCombination(Combination{
				Code:   code,
				First:  PostType(code[:2]),
				Second: PostType(code[2:]),
				Tier:   tier,
			})
		}
	}

	return c
}

func (c *Catalog) addCombination(combo Combination) {
	if _, exists := c.combinations[combo.Code]; !exists {
		c.comboOrder = append(c.comboOrder, combo.Code)
	}
	c.combinations[combo.Code] = combo
}

func (c *Catalog) clone() *Catalog {
	out := &Catalog{
		posts:         make(map[PostType]PostDefinition, len(c.posts)),
		order:         slices.Clone(c.order),
		weekdayGroups: make(map[PostType]Group, len(c.weekdayGroups)),
		weekendGroups: make(map[PostType]Group, len(c.weekendGroups)),
		combinations:  make(map[string]Combination, len(c.combinations)),
		comboOrder:    slices.Clone(c.comboOrder),
	}
	for k, v := range c.posts {
		out.posts[k] = v
	}
	for k, v := range c.weekdayGroups {
		out.weekdayGroups[k] = v
	}
	for k, v := range c.weekendGroups {
		out.weekendGroups[k] = v
	}
	for k, v := range c.combinations {
		out.combinations[k] = v
	}
	return out
}

// WithCustomPosts returns a copy of the catalog extended with the given custom posts
func (c *Catalog) WithCustomPosts(custom []CustomPost) (*Catalog, error) {
	out := c.clone()

	for _, cp := range custom {
		if cp.Name == "" {
			return nil, fmt.Errorf("custom post has no name")
		}
		if _, exists := out.posts[cp.Name]; exists {
			return nil, fmt.Errorf("custom post %s collides with an existing post", cp.Name)
		}
		out.posts[cp.Name] = PostDefinition{
			Type:     cp.Name,
			Start:    cp.Start,
			End:      cp.End,
			Audience: cp.Audience,
			DayTypes: cp.DayTypes,
			Night:    cp.Start >= Clock(20, 0) || (cp.End <= cp.Start && cp.End > Clock(0, 0)),
		}
		out.order = append(out.order, cp.Name)
		if cp.StatisticGroup != "" {
			out.weekdayGroups[cp.Name] = cp.StatisticGroup
			out.weekendGroups[cp.Name] = cp.StatisticGroup
		}
	}

	for _, cp := range custom {
		for _, cc := range cp.Combinations {
			partner, ok := out.posts[cc.Partner]
			if !ok {
				return nil, fmt.Errorf("custom post %s pairs with unknown post %s", cp.Name, cc.Partner)
			}
			own := out.posts[cp.Name]
			if own.Period() == partner.Period() {
				return nil, fmt.Errorf("custom combination %s pairs two %s posts", cc.Code, own.Period())
			}
			first, second := cp.Name, cc.Partner
			if partner.Period() < own.Period() {
				first, second = second, first
			}
			code := cc.Code
			if code == "" {
				code = string(first) + string(second)
			}
			out.addCombination(Combination{Code: code, First: first, Second: second, Tier: cc.Tier})
		}
	}

	return out, nil
}

// Post returns the definition of a post type
func (c *Catalog) Post(pt PostType) (PostDefinition, bool) {
	d, ok := c.posts[pt]
	return d, ok
}

// PostTypes returns all post types in catalog order
func (c *Catalog) PostTypes() []PostType {
	return slices.Clone(c.order)
}

// GroupOf returns the statistic group of a post for the given day type
func (c *Catalog) GroupOf(pt PostType, dt DayType) (Group, bool) {
	table := c.weekdayGroups
	if dt.IsWeekend() {
		table = c.weekendGroups
	}
	g, ok := table[pt]
	return g, ok
}

// Combination looks up a combination by code
func (c *Catalog) Combination(code string) (Combination, error) {
	combo, ok := c.combinations[code]
	if !ok {
		return Combination{}, fmt.Errorf("%w: %q", ErrInvalidCombination, code)
	}
	return combo, nil
}

// Combinations returns every combination ordered by tier, then catalog order
func (c *Catalog) Combinations() []Combination {
	out := make([]Combination, 0, len(c.comboOrder))
	for _, tier := range Tiers {
		for _, code := range c.comboOrder {
			if combo := c.combinations[code]; combo.Tier == tier {
				out = append(out, combo)
			}
		}
	}
	return out
}

// CombinationsByTier groups Combinations by tier
func (c *Catalog) CombinationsByTier() map[Tier][]Combination {
	out := make(map[Tier][]Combination)
	for _, combo := range c.Combinations() {
		out[combo.Tier] = append(out[combo.Tier], combo)
	}
	return out
}

// GroupIncrements returns how much each statistic group grows when the combination is held.
// Both halves in the same group count twice.
func (c *Catalog) GroupIncrements(code string, dt DayType) (map[Group]int, error) {
	combo, err := c.Combination(code)
	if err != nil {
		return nil, err
	}
	inc := make(map[Group]int, 2)
	for _, pt := range combo.Posts() {
		g, ok := c.GroupOf(pt, dt)
		if !ok {
			continue
		}
		inc[g]++
	}
	return inc, nil
}
