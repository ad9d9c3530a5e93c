package safecheck

import "fmt"

type templateItem struct {
	category string
	item     string
	required int
}

var hseTemplate = []templateItem{
	{"Housekeeping", "Work area clean and free of debris", 0},
	{"Housekeeping", "Walkways and access routes clear", 0},
	{"Housekeeping", "Materials stored and stacked safely", 0},
	{"Personal Protective Equipment", "Hard hats worn", 0},
	{"Personal Protective Equipment", "Safety footwear worn", 0},
	{"Personal Protective Equipment", "High-visibility clothing worn", 0},
	{"Personal Protective Equipment", "Eye and hearing protection used where required", 0},
	{"Fire Safety", "Fire extinguishers available and accessible", 0},
	{"Fire Safety", "Emergency exits marked and unobstructed", 0},
	{"Fire Safety", "Hot work permits in place", 0},
	{"Electrical Safety", "Cables and leads in good condition", 0},
	{"Electrical Safety", "Distribution boards closed and labelled", 0},
	{"Electrical Safety", "Portable tools tested and tagged", 0},
	{"Work at Height", "Scaffolding inspected and tagged", 0},
	{"Work at Height", "Edge protection in place", 0},
	{"Work at Height", "Harnesses used and anchored", 0},
	{"Tools & Equipment", "Hand tools in good condition", 0},
	{"Tools & Equipment", "Machine guards fitted", 0},
	{"Tools & Equipment", "Lifting equipment certified", 0},
	{"Signage & Barricades", "Safety signage displayed", 0},
	{"Signage & Barricades", "Excavations barricaded", 0},
	{"Signage & Barricades", "Traffic management in place", 0},
	{"Welfare", "Drinking water available", 0},
	{"Welfare", "Toilets and washing facilities clean", 0},
	{"Welfare", "First aid kit available and stocked", 0},
}

var fireExtinguisherTemplate = []templateItem{
	{"Location & Access", "Extinguisher in designated location", 0},
	{"Location & Access", "Access unobstructed", 0},
	{"Location & Access", "Mounted at correct height", 0},
	{"Location & Access", "Location signage visible", 0},
	{"Physical Condition", "Cylinder free of dents and corrosion", 0},
	{"Physical Condition", "Hose and nozzle undamaged", 0},
	{"Physical Condition", "Hose free of blockage", 0},
	{"Physical Condition", "Handle and lever intact", 0},
	{"Physical Condition", "Bracket secure", 0},
	{"Pressure & Seals", "Pressure gauge in operable range", 0},
	{"Pressure & Seals", "Safety pin in place", 0},
	{"Pressure & Seals", "Tamper seal intact", 0},
	{"Pressure & Seals", "Weight within specification", 0},
	{"Labels & Tags", "Operating instructions legible", 0},
	{"Labels & Tags", "Service tag attached", 0},
	{"Labels & Tags", "Service date current", 0},
	{"Labels & Tags", "Extinguisher class label present", 0},
	{"Maintenance", "Annual maintenance completed", 0},
	{"Maintenance", "Hydrostatic test date current", 0},
	{"Maintenance", "Previous defects rectified", 0},
	{"Maintenance", "Monthly visual check recorded", 0},
	{"Maintenance", "Extinguisher type suitable for hazard", 0},
}

var firstAidTemplate = []templateItem{
	{"Dressings", "Sterile adhesive plasters", 20},
	{"Dressings", "Medium sterile dressings", 6},
	{"Dressings", "Large sterile dressings", 2},
	{"Dressings", "Eye pads", 2},
	{"Bandages", "Triangular bandages", 4},
	{"Bandages", "Crepe bandages", 2},
	{"Consumables", "Safety pins", 6},
	{"Consumables", "Disposable gloves (pairs)", 4},
	{"Consumables", "Alcohol-free wipes", 10},
	{"Consumables", "Burn gel sachets", 2},
	{"Equipment", "Scissors", 1},
	{"Equipment", "Resuscitation face shield", 1},
	{"Equipment", "Foil blanket", 1},
	{"Kit Condition", "Kit box clean and undamaged", 0},
	{"Kit Condition", "Contents list present", 0},
	{"Kit Condition", "Kit clearly signed and accessible", 0},
}

// NewTemplate returns the default checklist of a kind with every item
// unrated. Stock items start fully stocked.
func NewTemplate(kind Kind) ([]ChecklistItem, error) {
	var src []templateItem
	var prefix string
	switch kind {
	case KindHSE:
		src, prefix = hseTemplate, "hse"
	case KindFireExtinguisher:
		src, prefix = fireExtinguisherTemplate, "fe"
	case KindFirstAid:
		src, prefix = firstAidTemplate, "fa"
	default:
		return nil, Invalid("Unknown inspection kind %q", kind)
	}

	items := make([]ChecklistItem, len(src))
	for i, t := range src {
		items[i] = ChecklistItem{
			ID:               fmt.Sprintf("%s-%02d", prefix, i+1),
			Category:         t.category,
			Item:             t.item,
			RequiredQuantity: t.required,
			CurrentQuantity:  t.required,
		}
	}
	return items, nil
}
