package stores

import "strings"

// FieldLabel pairs a display label with the extracted field key it reads.
type FieldLabel struct {
	Field string `json:"field"`
	Key   string `json:"key"`
}

type FieldSection struct {
	Name   string       `json:"name"`
	Fields []FieldLabel `json:"fields"`
}

var WashingDocumentFields = []FieldLabel{
	{Field: "ET", Key: "Nombre"},
	{Field: "Conductor", Key: "Conductor"},
	{Field: "Producto", Key: "Producto"},
	{Field: "Matrícula Vehículo", Key: "Vehículo"},
	{Field: "Matrícula Cisterna/Contenedor", Key: "Cisterna/Contenedor"},
}

var ADRCertificateData = []FieldSection{
	{
		Name: "section1",
		Fields: []FieldLabel{
			{Field: "Certificado Nº", Key: "Numero_certificado"},
			{Field: "Constructor del Vehículo", Key: "Constructor_vehiculo"},
			{Field: "Nº Identificación del Vehículo", Key: "Identificacion_vehiculo"},
			{Field: "Nº de Matrícula", Key: "Matricula"},
		},
	},
	{
		Name: "section3",
		Fields: []FieldLabel{
			{Field: "Descripción del vehículo", Key: "Descripcion_vehiculo"},
		},
	},
	{
		Name: "section5",
		Fields: []FieldLabel{
			{Field: "No aplicable", Key: "Disp_frenos_resistencia_no_aplicable"},
			{
				Field: "La eficacia según 9.2.3.1.2 del ADR es suficiente para un peso total de la unidad de transporte de",
				Key:   "Disp_frenos_resistencia_eficacia_suficiente",
			},
			{Field: "Peso total", Key: "Peso_total"},
		},
	},
	{
		Name: "section7",
		Fields: []FieldLabel{
			{Field: "Mercancías de la clase 1, incluyendo el grupo de compatibilidad J", Key: "Mercancias_clase_1_incl_grupo_comp_j"},
			{Field: "Mercancías de la clase 1, exceptuando el grupo de compatibilidad J", Key: "Mercancias_clase_1_excep_grupo_comp_j"},
			{
				Field: "Solamente se podrán transportar (5) las materias autorizadas de acuerdo con el código de cisterna y cualquier disposición especial indicada en el Nº9",
				Key:   "Solo_trans_materias_autorizadas",
			},
			{
				Field: "Solamente se podrán transportar las materias siguientes (Clase, Nº ONU, y si fuera necesario el grupo de embalaje y la designación oficial de transporte): Este certificado se complementa con un listado de 8 Mercancías Peligrosas.",
				Key:   "Solo_trans_materias_siguientes",
			},
		},
	},
}

var WashingDocumentCodes = []string{
	"C01", "C10", "C20", "E35", "E41", "E50", "E51", "E52", "E55", "E56", "E57",
	"E58", "E60", "E61", "E62", "E63", "E64", "E71", "E72", "E75", "E77", "E78",
	"E79", "E90", "F01", "F50", "P01", "P10", "P30", "P40", "W50",
}

var ProhibitedCodes = []string{"C01", "C10", "C20", "F51"}

var namePrefixes = []string{"NAP", "NAM", "NAME"}

// CleanName strips the first matching machine-readable prefix from an
// identity document name. Prefixes are tried in order, so "NAME" is never
// reached once "NAM" matches.
func CleanName(name string) string {
	for _, prefix := range namePrefixes {
		if strings.HasPrefix(name, prefix) {
			return name[len(prefix):]
		}
	}
	return name
}
