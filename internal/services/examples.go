package services

import "github.com/aparetext/aparetext/internal/snippet"

func exampleSnippets() []snippet.Content {
	text := func(name, abbreviation, body string, tags []string, vars ...snippet.Variable) snippet.Content {
		c := snippet.New().Content
		c.Name = name
		c.Abbreviation = abbreviation
		c.ContentText = body
		c.Tags = tags
		c.Variables = append([]snippet.Variable{}, vars...)
		return c
	}
	field := func(key, label, placeholder string, required bool) snippet.Variable {
		return snippet.Variable{Key: key, Label: label, Type: snippet.VariableText, Placeholder: placeholder, Required: required}
	}

	return []snippet.Content{
		text("Saludo personalizado", ";hola",
			"¡Hola {{nombre}}!\n\nEspero que te encuentres bien. {{mensaje_personal}}\n\nSaludos cordiales,\n{{tu_nombre}}",
			[]string{"saludo", "email", "personal"},
			field("nombre", "Nombre de la persona", "Juan Pérez", true),
			field("mensaje_personal", "Mensaje personalizado", "Me gustaría hablar contigo sobre...", false),
			field("tu_nombre", "Tu nombre", "María García", true),
		),
		text("Firma profesional", ";firma",
			"{{tu_nombre}}\n{{cargo}}\n{{empresa}}\n{{email}} | {{telefono}}\n{{sitio_web}}",
			[]string{"firma", "email", "profesional"},
			field("tu_nombre", "Tu nombre completo", "María García López", true),
			field("cargo", "Tu cargo", "Desarrolladora Senior", true),
			field("empresa", "Nombre de la empresa", "Tech Solutions S.A.", true),
			snippet.Variable{Key: "email", Label: "Correo electrónico", Type: snippet.VariableEmail, Placeholder: "maria.garcia@empresa.com", Required: true},
			field("telefono", "Teléfono", "+34 600 123 456", false),
			field("sitio_web", "Sitio web", "www.empresa.com", false),
		),
		text("Fecha y hora actual", ";fecha",
			"{{date:%d/%m/%Y}} a las {{time:%H:%M}}",
			[]string{"fecha", "hora", "tiempo"},
		),
		text("Notas de reunión", ";meeting",
			"# Reunión: {{tema}}\n\n**Fecha:** {{date:%d/%m/%Y}}\n**Hora:** {{time:%H:%M}}\n**Participantes:** {{participantes}}\n\n## Agenda\n{{|}}\n\n## Decisiones\n\n## Próximos pasos\n",
			[]string{"reunion", "notas", "trabajo"},
			field("tema", "Tema de la reunión", "Revisión del proyecto Q4", true),
			field("participantes", "Participantes", "Juan, María, Carlos", true),
		),
		text("Lorem ipsum", ";lorem",
			"Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat.",
			[]string{"lorem", "ipsum", "placeholder", "texto"},
		),
		text("Respuesta rápida", ";gracias",
			"¡Gracias por tu {{tipo_mensaje}}!\n\n{{respuesta_personalizada}}\n\nSi necesitas algo más, no dudes en contactarme.\n\nSaludos,\n{{tu_nombre}}",
			[]string{"respuesta", "gracias", "email"},
			snippet.Variable{Key: "tipo_mensaje", Label: "Tipo de mensaje", Type: snippet.VariableSelect, Options: []string{"mensaje", "email", "consulta", "comentario"}, DefaultValue: "mensaje", Required: true},
			field("respuesta_personalizada", "Respuesta personalizada", "He revisado tu consulta y te responderé pronto.", false),
			field("tu_nombre", "Tu nombre", "María García", true),
		),
	}
}
