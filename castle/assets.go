package castle

import "castlepatch/patch"

const (
	imageStylesMarker      = "/* Castle Images */"
	faqStylesMarker        = "/* FAQ Section Styles */"
	breadcrumbStylesMarker = "/* Breadcrumb Styles */"
)

func styleRule(name, marker, css string) patch.Rule {
	return patch.Rule{
		Name:    name,
		Only:    []string{"*.css"},
		Locator: patch.End{},
		Applied: patch.Contains(marker),
		Render:  patch.Static("\n" + marker + "\n" + css),
	}
}

func faqScriptRule() patch.Rule {
	return patch.Rule{
		Name:    "faq-script",
		Only:    []string{"*.js"},
		Locator: patch.End{},
		Applied: patch.Contains("function toggleFaq"),
		Render:  patch.Static(faqScript),
	}
}

const imageStyles = `.castle-image {
  width: 100%;
  height: 100%;
  object-fit: cover;
  border-radius: 12px;
}

.detail-media {
  border-radius: 12px;
  overflow: hidden;
  box-shadow: 0 4px 12px rgba(0, 0, 0, 0.1);
}

.detail-media-hidden {
  display: none;
}

.card-media img {
  display: block;
}
`

const faqStyles = `.faq {
  background-color: #f8fafc;
  padding: 3rem 0;
}

.faq-list {
  max-width: 800px;
  margin: 0 auto;
}

.faq-item {
  background: white;
  border-radius: 8px;
  margin-bottom: 1rem;
  box-shadow: 0 2px 4px rgba(0,0,0,0.1);
  overflow: hidden;
}

.faq-question {
  width: 100%;
  padding: 1.5rem;
  background: none;
  border: none;
  text-align: left;
  font-size: 1.1rem;
  font-weight: 600;
  color: #1f2937;
  cursor: pointer;
  display: flex;
  justify-content: space-between;
  align-items: center;
  transition: background-color 0.2s;
}

.faq-question:hover {
  background-color: #f9fafb;
}

.faq-icon {
  font-size: 1.5rem;
  font-weight: 300;
  color: #6b7280;
  transition: transform 0.2s;
}

.faq-question[aria-expanded="true"] .faq-icon {
  transform: rotate(45deg);
}

.faq-answer {
  max-height: 0;
  overflow: hidden;
  transition: max-height 0.3s ease-out;
}

.faq-answer.open {
  max-height: 400px;
  transition: max-height 0.3s ease-in;
}

.faq-answer p {
  padding: 0 1.5rem 1.5rem;
  margin: 0;
  color: #4b5563;
  line-height: 1.6;
}

@media (max-width: 768px) {
  .faq-question {
    padding: 1rem;
    font-size: 1rem;
  }

  .faq-answer p {
    padding: 0 1rem 1rem;
  }
}
`

const breadcrumbStyles = `.breadcrumb {
  margin-bottom: 1.5rem;
  font-size: 0.875rem;
  color: #6b7280;
}

.breadcrumb a {
  color: #6b7280;
  text-decoration: none;
  transition: color 0.2s;
}

.breadcrumb a:hover {
  color: #3b82f6;
  text-decoration: underline;
}

.breadcrumb-separator {
  margin: 0 0.5rem;
  color: #9ca3af;
}

.breadcrumb-current {
  color: #1f2937;
  font-weight: 500;
}

@media (max-width: 768px) {
  .breadcrumb {
    font-size: 0.75rem;
    margin-bottom: 1rem;
  }

  .breadcrumb-separator {
    margin: 0 0.25rem;
  }
}
`

const faqScript = `
function toggleFaq(index) {
  const question = document.querySelector(` + "`" + `button[onclick="toggleFaq(${index})"]` + "`" + `);
  const answer = document.getElementById(` + "`" + `faq-${index}` + "`" + `);
  const isExpanded = question.getAttribute('aria-expanded') === 'true';

  document.querySelectorAll('.faq-question').forEach(q => {
    q.setAttribute('aria-expanded', 'false');
  });
  document.querySelectorAll('.faq-answer').forEach(a => {
    a.classList.remove('open');
  });

  if (!isExpanded) {
    question.setAttribute('aria-expanded', 'true');
    answer.classList.add('open');
  }
}
`
