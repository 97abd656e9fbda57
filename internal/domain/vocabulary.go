package domain

// RequestTypes is the controlled vocabulary for Ticket.RequestType.
var RequestTypes = []string{
	"Apoio aos Órgãos de Execução - 1º Grau",
	"Apoio aos Órgãos de Execução - 2º Grau",
	"Atendimento ao Público",
	"PGA de Políticas Públicas",
}

// Subjects is the controlled vocabulary for Ticket.Subject.
var Subjects = []string{
	"Atenção Primária à Saúde",
	"Atenção Especializada",
	"Atenção especializada - ambulatorial",
	"Atenção especializada - hospitalar",
	"Saúde Mental",
	"Saúde mental - atendimento",
	"Saúde mental - serviços",
	"Fornecimento de Medicamentos",
	"Fornecimento de Insumos",
	"Financiamento do SUS",
	"Controle Social",
	"Transporte",
	"Vigilância em Saúde",
	"Regulação - consulta e exames",
	"Regulação - hospitalar/urgência",
	"Cirurgia Eletiva",
	"Projetos",
	"Oncologia",
	"Outros",
}

// IsKnownRequestType reports whether value is in RequestTypes.
func IsKnownRequestType(value string) bool {
	return contains(RequestTypes, value)
}

// IsKnownSubject reports whether value is in Subjects.
func IsKnownSubject(value string) bool {
	return contains(Subjects, value)
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
