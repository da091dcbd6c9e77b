package renderer

// harnessJS is the worker-side half of the mailbox protocol: a small Node
// program that reads one JSON request per line on stdin, renders the
// requested paths with the site's renderer entry module, and writes one
// JSON reply per line on stdout. The entry module is imported once and
// cached, so a warming request pays the import cost before real traffic.
const harnessJS = `
import { createInterface } from "node:readline";
import { pathToFileURL } from "node:url";

const out = process.stdout;
const write = (payload) => out.write(JSON.stringify(payload) + "\n");

const entries = new Map();
function loadEntry(entry) {
  if (!entries.has(entry)) {
    entries.set(entry, import(pathToFileURL(entry).href));
  }
  return entries.get(entry);
}

const rl = createInterface({ input: process.stdin, terminal: false });
rl.on("line", async (line) => {
  if (!line.trim()) return;
  let req;
  try {
    req = JSON.parse(line);
  } catch {
    return;
  }
  if (req.warming) {
    if (req.entry) {
      try { await loadEntry(req.entry); } catch {}
    }
    write({ id: req.id, status: "ok", html: [] });
    return;
  }
  try {
    for (const kv of req.env ?? []) process.env[kv.key] = kv.value;
    const mod = await loadEntry(req.entry);
    const render = mod.default ?? mod.renderHTML;
    if (typeof render !== "function") {
      throw new Error("renderer entry exports no render function: " + req.entry);
    }
    const html = [];
    for (const p of req.paths ?? []) {
      html.push(String(await render({ path: p, workDir: req.workDir })));
    }
    write({ id: req.id, status: "ok", html });
  } catch (e) {
    write({
      id: req.id,
      status: "err",
      error: {
        message: String(e && e.message ? e.message : e),
        type: e && e.name ? e.name : "Error",
        stack: e && e.stack ? e.stack : "",
      },
    });
  }
});
rl.on("close", () => process.exit(0));
`
