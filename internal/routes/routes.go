package routes

import "strings"

// View is one front-end page.
type View struct {
	Path string `json:"path"`
	Name string `json:"name"`
	View string `json:"view"`
}

var table = []View{
	{Path: "/", Name: "home", View: "HomeView"},
	{Path: "/stratesys-cars", Name: "stratesys-cars", View: "Stratesys/Cars/HomeView"},
	{Path: "/stratesys-cars/chat", Name: "chat", View: "Stratesys/Cars/ChatView"},
	{Path: "/stratesys-cars/shop", Name: "shop", View: "Stratesys/Cars/CustomVisionShopView"},
	{Path: "/stratesys-cars/classification", Name: "cars-classification", View: "Stratesys/Cars/DocumentsClassificationView"},
	{Path: "/stratesys-docint", Name: "stratesys-docint", View: "Stratesys/DocIntelligence/HomeView"},
	{Path: "/stratesys-docint/classification", Name: "classification", View: "Stratesys/DocIntelligence/ClassificationView"},
	{Path: "/stratesys-docint/particular", Name: "particular", View: "Stratesys/DocIntelligence/ParticularDocumentView"},
	{Path: "/stratesys-docint/onboarding", Name: "onboarding", View: "Stratesys/DocIntelligence/OnboardingView"},
	{Path: "/repsol-docint", Name: "repsol-docint", View: "Repsol/DocIntelligence/HomeView"},
	{Path: "/repsol-custom-vision", Name: "repsol-custom-vision", View: "Repsol/CustomVision/HomeView"},
	{Path: "/repsol-custom-vision/summary", Name: "summary", View: "Repsol/CustomVision/SummaryView"},
}

// All returns a copy of the route table in declaration order.
func All() []View {
	out := make([]View, len(table))
	copy(out, table)
	return out
}

// Lookup resolves a path, ignoring a trailing slash and any query string.
func Lookup(path string) (View, bool) {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	for _, v := range table {
		if v.Path == path {
			return v, true
		}
	}
	return View{}, false
}

func ByName(name string) (View, bool) {
	for _, v := range table {
		if v.Name == name {
			return v, true
		}
	}
	return View{}, false
}
