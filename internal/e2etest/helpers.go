package e2etest

import (
	"fmt"
	neturl "net/url"

	"github.com/PuerkitoBio/goquery"
)

// findControlForLabel finds the form control a label points at, either through its for attribute or by nesting.
func findControlForLabel(form *goquery.Selection, labelText, selector string) (*goquery.Selection, error) {
	label := form.Find(fmt.Sprintf("label:contains(%q)", labelText)).First()
	if label.Length() == 0 {
		return nil, fmt.Errorf("label not found: %s", labelText)
	}
	var control *goquery.Selection
	if id, exists := label.Attr("for"); exists {
		control = form.Find("#" + id).Filter(selector)
	} else {
		control = label.Find(selector)
	}
	if control.Length() == 0 {
		return nil, fmt.Errorf("%s not found for label: %s", selector, labelText)
	}
	return control.First(), nil
}

// FindInputForLabel finds the input or textarea associated with a label in the given form.
func FindInputForLabel(form *goquery.Selection, labelText string) (*goquery.Selection, error) {
	return findControlForLabel(form, labelText, "input,textarea")
}

// FindSelectForLabel finds the select element associated with a label in the given form.
func FindSelectForLabel(form *goquery.Selection, labelText string) (*goquery.Selection, error) {
	return findControlForLabel(form, labelText, "select")
}

// FindForm finds a form in the doc identified with action formActionUrlPath and returns the form selection.
func FindForm(doc *goquery.Document, formActionURLPath string) (*goquery.Selection, error) {
	form := doc.Find(fmt.Sprintf("form[action='%s']", formActionURLPath))
	if form.Length() == 0 {
		return nil, fmt.Errorf("form not found: %s", formActionURLPath)
	}
	return form.First(), nil
}

// FillForm returns the values a browser would submit for form after applying fields, a map of label text to value.
func FillForm(form *goquery.Selection, fields map[string]string) (neturl.Values, error) {
	for labelText, value := range fields {
		if sel, err := FindSelectForLabel(form, labelText); err == nil {
			sel.Find("option").RemoveAttr("selected")
			option := sel.Find(fmt.Sprintf("option[value=%q]", value))
			if option.Length() == 0 {
				return nil, fmt.Errorf("option %q not found for label: %s", value, labelText)
			}
			option.SetAttr("selected", "selected")
			continue
		}
		input, err := FindInputForLabel(form, labelText)
		if err != nil {
			return nil, err
		}
		if _, ok := input.Attr("name"); !ok {
			return nil, fmt.Errorf("input has no name attribute (label: %s)", labelText)
		}
		switch input.AttrOr("type", "text") {
		case "checkbox", "radio":
			if value == "" {
				input.RemoveAttr("checked")
			} else {
				input.SetAttr("checked", "checked")
			}
		default:
			if goquery.NodeName(input) == "textarea" {
				input.SetText(value)
			} else {
				input.SetAttr("value", value)
			}
		}
	}
	return formValues(form), nil
}

// formValues collects the successful controls of form.
func formValues(form *goquery.Selection) neturl.Values {
	values := neturl.Values{}
	form.Find("input[name],textarea[name],select[name]").Each(func(_ int, control *goquery.Selection) {
		if _, disabled := control.Attr("disabled"); disabled {
			return
		}
		name := control.AttrOr("name", "")
		switch goquery.NodeName(control) {
		case "textarea":
			values.Add(name, control.Text())
		case "select":
			selected := control.Find("option[selected]")
			if selected.Length() == 0 {
				selected = control.Find("option").First()
			}
			selected.Each(func(_ int, option *goquery.Selection) {
				values.Add(name, option.AttrOr("value", option.Text()))
			})
		default:
			switch control.AttrOr("type", "text") {
			case "checkbox", "radio":
				if _, checked := control.Attr("checked"); checked {
					values.Add(name, control.AttrOr("value", "on"))
				}
			case "submit", "button", "reset", "image":
			default:
				values.Add(name, control.AttrOr("value", ""))
			}
		}
	})
	return values
}
