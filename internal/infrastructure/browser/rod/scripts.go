package rod

// Scripts run with this bound to an element or shadow root.

const jsDirectText = `(el) => Array.from(el.childNodes)
	.filter((n) => n.nodeType === Node.TEXT_NODE)
	.map((n) => n.textContent.trim())
	.filter(Boolean)
	.join(" ")
	.replace(/\s+/g, " ")`

const jsChildren = `() => Array.from(this.children || [])`

const jsShadowRoot = `() => (this.shadowRoot ? [this.shadowRoot] : [])`

const jsParent = `() => {
	const p = this.parentNode;
	if (p instanceof ShadowRoot) return [p.host];
	return p && p.nodeType === Node.ELEMENT_NODE ? [p] : [];
}`

const jsParentIsShadow = `() => this.parentNode instanceof ShadowRoot`

const jsDescribe = `() => {
	const directText = ` + jsDirectText + `;
	const attributes = {};
	for (const a of this.attributes || []) attributes[a.name] = a.value;
	return {
		connected: this.isConnected,
		tag: (this.tagName || "#shadow-root").toLowerCase(),
		attributes,
		directText: directText(this),
		childCount: (this.children || []).length,
		hasShadow: !!this.shadowRoot,
	};
}`

const jsText = `() => this.innerText ?? this.textContent ?? ""`

const jsAttribute = `(name) => (this.getAttribute ? this.getAttribute(name) : null)`

const jsContains = `(n) => {
	for (let p = n.parentNode || n.host; p; p = p.parentNode || p.host) {
		if (p === this) return true;
	}
	return false;
}`

const jsQuery = `(sel, pierce, pattern, useDoc) => {
	const directText = ` + jsDirectText + `;
	const re = pattern ? new RegExp(sel) : null;
	const match = (el) => {
		if (!re) return el.matches(sel);
		const t = directText(el);
		return t !== "" && re.test(t);
	};
	const out = [];
	const walk = (scope) => {
		for (const el of scope.querySelectorAll("*")) {
			if (match(el)) out.push(el);
			if (pierce && el.shadowRoot) walk(el.shadowRoot);
		}
	};
	const scope = useDoc ? document : this;
	walk(scope);
	if (pierce && !useDoc && scope.shadowRoot) walk(scope.shadowRoot);
	return out;
}`

const jsMetrics = `(useBody) => {
	const n = useBody ? document.body : this;
	return {
		length: (n.outerHTML ?? n.innerHTML ?? "").length,
		children: (n.children || []).length,
	};
}`
