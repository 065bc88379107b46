package i18n

import "strings"

// Message codes for every failure the product-edit workflow can surface.
// Handlers and services never emit raw driver or validation errors to clients;
// they resolve one of these codes through the catalogue instead.
const (
	MsgPermissionDenied     = "permission.denied"
	MsgInputMissing         = "input.missing"
	MsgProductNotFound      = "product.notFound"
	MsgAttributeNotFound    = "attribute.notFound"
	MsgOptionNotFound       = "option.notFound"
	MsgCategoryNotFound     = "category.notFound"
	MsgBrandNotFound        = "brand.notFound"
	MsgTaskNotFound         = "task.notFound"
	MsgVariantTypeMismatch  = "variant.attributeTypeMismatch"
	MsgVariantDuplicate     = "variant.duplicateAxis"
	MsgTaskStateTransition  = "task.invalidStateTransition"
	MsgProductUpdateError   = "product.updateError"
	MsgProductUpdateSuccess = "product.updateSuccess"
	MsgTaskCreateError      = "task.createError"
	MsgTaskUpdateSuccess    = "task.updateSuccess"
	MsgInternalError        = "internal.error"
)

var defaultMessages = map[string]map[string]string{
	MsgPermissionDenied: {
		"en": "You do not have permission to perform this operation",
		"fr": "Vous n'avez pas l'autorisation d'effectuer cette opération",
	},
	MsgInputMissing: {
		"en": "Required input is missing",
		"fr": "Une donnée obligatoire est manquante",
	},
	MsgProductNotFound: {
		"en": "Product not found",
		"fr": "Produit introuvable",
	},
	MsgAttributeNotFound: {
		"en": "Attribute not found",
		"fr": "Attribut introuvable",
	},
	MsgOptionNotFound: {
		"en": "Option not found",
		"fr": "Option introuvable",
	},
	MsgCategoryNotFound: {
		"en": "Category not found",
		"fr": "Catégorie introuvable",
	},
	MsgBrandNotFound: {
		"en": "Brand not found",
		"fr": "Marque introuvable",
	},
	MsgTaskNotFound: {
		"en": "Task not found",
		"fr": "Tâche introuvable",
	},
	MsgVariantTypeMismatch: {
		"en": "Product variants require a select-type attribute",
		"fr": "Les variantes de produit nécessitent un attribut de type sélection",
	},
	MsgVariantDuplicate: {
		"en": "The attribute is already used as a variant axis",
		"fr": "L'attribut est déjà utilisé comme axe de variante",
	},
	MsgTaskStateTransition: {
		"en": "The task cannot move to the requested state",
		"fr": "La tâche ne peut pas passer à l'état demandé",
	},
	MsgProductUpdateError: {
		"en": "Product update failed",
		"fr": "La mise à jour du produit a échoué",
	},
	MsgProductUpdateSuccess: {
		"en": "Product updated",
		"fr": "Produit mis à jour",
	},
	MsgTaskCreateError: {
		"en": "Task creation failed",
		"fr": "La création de la tâche a échoué",
	},
	MsgTaskUpdateSuccess: {
		"en": "Changes saved to the task draft",
		"fr": "Modifications enregistrées dans le brouillon de la tâche",
	},
	MsgInternalError: {
		"en": "Something went wrong, please try again later",
		"fr": "Une erreur est survenue, veuillez réessayer plus tard",
	},
}

// Messages resolves localized user-facing strings by message code.
type Messages struct {
	locales Locales
	catalog map[string]map[string]string
}

// NewMessages builds the message catalogue seeded with the built-in defaults.
// Extra translations are merged over the defaults, locale by locale.
func NewMessages(locales Locales, extra map[string]map[string]string) Messages {
	catalog := make(map[string]map[string]string, len(defaultMessages))
	for code, translations := range defaultMessages {
		merged := make(map[string]string, len(translations))
		for locale, value := range translations {
			merged[locale] = value
		}
		catalog[code] = merged
	}
	for code, translations := range extra {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		merged, ok := catalog[code]
		if !ok {
			merged = make(map[string]string, len(translations))
			catalog[code] = merged
		}
		for locale, value := range NormalizeStringMap(translations) {
			merged[locale] = value
		}
	}
	return Messages{locales: locales, catalog: catalog}
}

// Lookup resolves the message code for the given locale. Unknown codes resolve
// to the generic internal error message so raw codes never leak to clients.
func (m Messages) Lookup(code, locale string) string {
	translations, ok := m.catalog[code]
	if !ok {
		translations = m.catalog[MsgInternalError]
	}
	if value := m.locales.String(translations, locale); value != "" {
		return value
	}
	return m.locales.String(m.catalog[MsgInternalError], locale)
}

// Locales exposes the locale policy the catalogue was built with.
func (m Messages) Locales() Locales {
	return m.locales
}
