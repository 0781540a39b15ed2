package browser

// helperScript installs window.__scraper, the page-side half of Element.
// Elements are addressed by a data-scraper-id attribute stamped on demand.
const helperScript = `(() => {
  if (window.__scraper) return true;
  const attr = 'data-scraper-id';
  let seq = 0;
  if (!document.getElementById('scraper-highlight-style')) {
    const style = document.createElement('style');
    style.id = 'scraper-highlight-style';
    style.textContent =
      '.scraper-hover { outline: 4px solid #007bff !important; cursor: crosshair !important; background-color: rgba(0, 123, 255, 0.1) !important; }' +
      '.scraper-target { outline: 4px solid #28a745 !important; }';
    (document.head || document.documentElement).appendChild(style);
  }
  const s = {
    stamp(el) {
      if (!el.hasAttribute(attr)) el.setAttribute(attr, 'e' + (++seq));
      return el.getAttribute(attr);
    },
    get(id) { return document.querySelector('[' + attr + '="' + id + '"]'); },
    find(sel) {
      const el = document.querySelector(sel);
      return el ? s.stamp(el) : '';
    },
    parent(id) {
      const el = s.get(id);
      const p = el && el.parentElement;
      if (!p || p === document.body || p === document.documentElement) return '';
      return s.stamp(p);
    },
    metrics(id) {
      const el = s.get(id);
      if (!el) return {ok: false};
      return {
        ok: true,
        scrollTop: el.scrollTop,
        scrollHeight: el.scrollHeight,
        clientHeight: el.clientHeight,
        overflowY: getComputedStyle(el).overflowY,
      };
    },
    candidates(id, sel) {
      const el = s.get(id);
      if (!el) return [];
      return Array.from(el.querySelectorAll(sel)).map(n => ({text: n.innerText || '', children: n.children.length}));
    },
    scrollBy(id, delta) {
      const el = s.get(id);
      if (!el) return -1;
      el.scrollTop += delta;
      return el.scrollTop;
    },
    setClass(id, cls, on) {
      const el = s.get(id);
      if (el) el.classList.toggle(cls, on);
      return !!el;
    },
    endSelect() { return true; },
  };
  window.__scraper = s;
  return true;
})()`

// selectScript attaches capture-phase listeners so the page's own handlers
// never see the hover, click or Escape. Every outcome is reported through the
// runtime binding named by the argument.
const selectScript = `((binding) => {
  const s = window.__scraper;
  s.endSelect();
  let hovered = null;
  const over = (e) => {
    e.stopPropagation();
    if (hovered && hovered !== e.target) hovered.classList.remove('scraper-hover');
    hovered = e.target;
    hovered.classList.add('scraper-hover');
  };
  const click = (e) => {
    e.preventDefault();
    e.stopPropagation();
    window[binding](JSON.stringify({type: 'pick', id: s.stamp(e.target)}));
  };
  const key = (e) => {
    if (e.key === 'Escape') window[binding](JSON.stringify({type: 'cancel'}));
  };
  document.addEventListener('mouseover', over, true);
  document.addEventListener('click', click, true);
  document.addEventListener('keydown', key, true);
  document.body.style.cursor = 'crosshair';
  s.endSelect = () => {
    document.removeEventListener('mouseover', over, true);
    document.removeEventListener('click', click, true);
    document.removeEventListener('keydown', key, true);
    if (hovered) hovered.classList.remove('scraper-hover');
    document.body.style.cursor = '';
    s.endSelect = () => true;
    return true;
  };
  return true;
})`
