package catalog

// Category is a selectable product category.
type Category struct {
	Slug  string `json:"slug"`
	Label string `json:"label"`
}

// CategoryGroup is a heading in the category menu.
type CategoryGroup struct {
	Name       string     `json:"name"`
	Categories []Category `json:"categories"`
}

// DefaultCategory is assigned when a product is created without one.
const DefaultCategory = "limpiadores"

var taxonomy = []CategoryGroup{
	{Name: "Papelería y Dispensadores", Categories: []Category{
		{"higienicos", "Higiénicos"},
		{"toallas_papel", "Toallas de papel"},
		{"servilletas", "Servilletas"},
		{"panuelos", "Pañuelos"},
		{"panos", "Paños"},
		{"sabanillas", "Sabanillas"},
		{"dispensadores", "Dispensadores"},
	}},
	{Name: "Artículos de Aseo", Categories: []Category{
		{"contenedores", "Contenedores"},
		{"basureros", "Basureros"},
		{"articulos_limpieza", "Artículos de limpieza"},
		{"aseo", "Aseo"},
	}},
	{Name: "Productos Químicos", Categories: []Category{
		{"pisos", "Pisos"},
		{"limpiadores", "Limpiadores"},
		{"desodorante", "Desodorante Ambiental"},
		{"automotriz", "Automotriz"},
		{"lavanderia", "Lavandería"},
	}},
	{Name: "Seguridad y Horeca", Categories: []Category{
		{"epp", "Elementos de Protección Personal (EPP)"},
		{"horeca", "HORECA (Hoteles, Restaurantes, Cafeterías)"},
	}},
}

var labels = func() map[string]string {
	m := make(map[string]string)
	for _, g := range taxonomy {
		for _, c := range g.Categories {
			m[c.Slug] = c.Label
		}
	}
	return m
}()

// Categories returns the category menu.
func Categories() []CategoryGroup {
	out := make([]CategoryGroup, len(taxonomy))
	for i, g := range taxonomy {
		out[i] = CategoryGroup{Name: g.Name, Categories: append([]Category(nil), g.Categories...)}
	}
	return out
}

// ValidCategory reports whether slug is a known category.
func ValidCategory(slug string) bool {
	_, ok := labels[slug]
	return ok
}

// CategoryLabel returns the display label of slug, or slug itself when unknown.
func CategoryLabel(slug string) string {
	if l, ok := labels[slug]; ok {
		return l
	}
	return slug
}
